package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Duration is a time.Duration decoded from strings like "30s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds the chat daemon configuration
type Config struct {
	// Network
	ListenAddr    string   `toml:"listen_addr"`
	Port          int      `toml:"port"`
	WriteTimeout  Duration `toml:"write_timeout"`   // Bound on one write to a client
	MaxLineLength int      `toml:"max_line_length"` // Longest accepted command line in bytes
	Console       bool     `toml:"console"`         // Run the admin console on stdin

	// Storage
	DataDir             string `toml:"data_dir"`
	StorageBackend      string `toml:"storage_backend"` // "file" or "sqlite"
	UserDataFile        string `toml:"user_data_file"`
	OfflineMessagesFile string `toml:"offline_messages_file"`
	SQLitePath          string `toml:"sqlite_path"`

	// Monitoring
	MetricsAddr    string   `toml:"metrics_addr,omitempty"` // Empty disables /metrics
	StatusDir      string   `toml:"status_dir,omitempty"`   // Empty disables status files
	StatusInterval Duration `toml:"status_interval"`

	// Logging
	AccessLogPath string `toml:"access_log_path,omitempty"`
	AppLogPath    string `toml:"app_log_path,omitempty"`
	LogLevel      string `toml:"log_level"`
	LogMaxSize    int64  `toml:"log_max_size"` // Bytes before the app log rotates
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{
		ListenAddr:          "0.0.0.0",
		Port:                12345,
		WriteTimeout:        Duration{10 * time.Second},
		MaxLineLength:       4096,
		Console:             true,
		DataDir:             ".",
		StorageBackend:      BackendFile,
		UserDataFile:        "user_data.txt",
		OfflineMessagesFile: "offline_messages.txt",
		SQLitePath:          "campuschat.db",
		StatusInterval:      Duration{30 * time.Second},
		LogLevel:            "info",
		LogMaxSize:          10 * 1024 * 1024,
	}
}

// LoadConfig reads the TOML file at path over the defaults and applies
// CHATD_* environment overrides. An empty path yields the defaults.
// Relative paths are resolved against the config file directory, or the
// working directory when there is no file.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	baseDir := "."

	if path != "" {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return Config{}, err
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}

	config.resolvePaths(baseDir)
	return config, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage_backend %q (valid: file, sqlite)", c.StorageBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("max_line_length must be positive")
	}
	if c.StatusDir != "" && c.StatusInterval.Duration <= 0 {
		return fmt.Errorf("status_interval must be positive when status_dir is set")
	}
	return nil
}

func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	c.DataDir = abs(c.DataDir)
	inData := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.DataDir, p)
	}
	c.UserDataFile = inData(c.UserDataFile)
	c.OfflineMessagesFile = inData(c.OfflineMessagesFile)
	c.SQLitePath = inData(c.SQLitePath)

	c.StatusDir = abs(c.StatusDir)
	c.AccessLogPath = abs(c.AccessLogPath)
	c.AppLogPath = abs(c.AppLogPath)
}

// applyEnvOverrides applies environment variable overrides to the config.
// Variables follow the pattern CHATD_<KEY>, e.g. CHATD_PORT=2323.
func applyEnvOverrides(c *Config) error {
	strs := map[string]*string{
		"CHATD_LISTEN_ADDR":           &c.ListenAddr,
		"CHATD_DATA_DIR":              &c.DataDir,
		"CHATD_STORAGE_BACKEND":       &c.StorageBackend,
		"CHATD_USER_DATA_FILE":        &c.UserDataFile,
		"CHATD_OFFLINE_MESSAGES_FILE": &c.OfflineMessagesFile,
		"CHATD_SQLITE_PATH":           &c.SQLitePath,
		"CHATD_METRICS_ADDR":          &c.MetricsAddr,
		"CHATD_STATUS_DIR":            &c.StatusDir,
		"CHATD_ACCESS_LOG_PATH":       &c.AccessLogPath,
		"CHATD_APP_LOG_PATH":          &c.AppLogPath,
		"CHATD_LOG_LEVEL":             &c.LogLevel,
	}
	for key, dst := range strs {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
		}
	}

	if val := os.Getenv("CHATD_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("CHATD_PORT: %w", err)
		}
		c.Port = port
	}
	if val := os.Getenv("CHATD_MAX_LINE_LENGTH"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("CHATD_MAX_LINE_LENGTH: %w", err)
		}
		c.MaxLineLength = n
	}
	if val := os.Getenv("CHATD_CONSOLE"); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("CHATD_CONSOLE: %w", err)
		}
		c.Console = b
	}
	if val := os.Getenv("CHATD_WRITE_TIMEOUT"); val != "" {
		if err := c.WriteTimeout.UnmarshalText([]byte(val)); err != nil {
			return fmt.Errorf("CHATD_WRITE_TIMEOUT: %w", err)
		}
	}
	return nil
}
