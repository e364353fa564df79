package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mmcdole/campuschat/pkg/chatserver"
	"github.com/mmcdole/campuschat/pkg/logging"
	"github.com/mmcdole/campuschat/pkg/metrics"
	"github.com/mmcdole/campuschat/pkg/offline"
	"github.com/mmcdole/campuschat/pkg/presence"
	"github.com/mmcdole/campuschat/pkg/status"
	"github.com/mmcdole/campuschat/pkg/users"
)

var (
	version     = "dev" // Will be set during build
	cfgFile     string
	showVersion bool
	noConsole   bool
)

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

var rootCmd = &cobra.Command{
	Use:           "chatd",
	Short:         "Campus chat server",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Campus chat server (chatd) - line based chat with roles and offline delivery

Clients connect over TCP and speak a plain text protocol (LOGIN, MESSAGE,
LIST_USERS, ...). Technicians can register users and disconnect sessions,
either over the network or from the server console on stdin.

The optional configuration file is TOML, for example:

    listen_addr = "0.0.0.0"
    port = 12345
    data_dir = "/var/lib/campuschat"
    storage_backend = "file"       # or "sqlite"
    user_data_file = "user_data.txt"
    offline_messages_file = "offline_messages.txt"
    metrics_addr = "127.0.0.1:9090"
    status_dir = "/run/campuschat"
    access_log_path = "/var/log/campuschat/access.log"
    log_level = "info"

Every key can be overridden with a CHATD_<KEY> environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("Campus chat server %s\n", version)
			return nil
		}

		if cfgFile != "" && !filepath.IsAbs(cfgFile) {
			abs, err := filepath.Abs(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to get absolute path: %w", err)
			}
			cfgFile = abs
		}

		config, err := LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if noConsole {
			config.Console = false
		}

		return run(cmd.Context(), &config)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to TOML config file (defaults are used when omitted)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version information")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "do not run the admin console on stdin")
}

func run(parent context.Context, config *Config) error {
	level, err := logging.ParseLevel(config.LogLevel)
	if err != nil {
		return err
	}
	if err := logging.Initialize(&logging.Config{
		AccessLogPath: config.AccessLogPath,
		AppLogPath:    config.AppLogPath,
		Level:         level,
		MaxSize:       config.LogMaxSize,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.App.Close()

	fs := afero.NewOsFs()
	st, err := openStores(config, fs)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer st.Close()

	directory, err := users.NewDirectory(st.users)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	queue, err := offline.NewQueue(st.messages)
	if err != nil {
		return fmt.Errorf("failed to load offline messages: %w", err)
	}
	if directory.Len() == 0 {
		logging.App.Warn("No users are registered; add a Technician record to the user store to administer the server")
	}

	m := metrics.New()
	server, err := chatserver.New(&chatserver.Config{
		ListenAddr:    config.ListenAddr,
		Port:          config.Port,
		MaxLineLength: config.MaxLineLength,
		WriteTimeout:  config.WriteTimeout.Duration,
	}, directory, queue, presence.NewRegistry(), m)
	if err != nil {
		return fmt.Errorf("failed to create chat server: %w", err)
	}

	var statusWriter *status.Writer
	if config.StatusDir != "" {
		statusWriter, err = status.New(fs, config.StatusDir, config.StatusInterval.Duration, version)
		if err != nil {
			return fmt.Errorf("failed to create status writer: %w", err)
		}
		statusWriter.SetProvider(server)
		if err := statusWriter.WriteStartFile(); err != nil {
			logging.App.Error("Failed to write start file", "error", err)
		}
		statusWriter.StartHeartbeat()
	}

	var metricsServer *http.Server
	if config.MetricsAddr != "" {
		metricsServer = startMetricsServer(config.MetricsAddr, m)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Console {
		console := chatserver.NewConsole(server.Router(), os.Stdin, os.Stdout)
		go func() {
			if err := console.Run(ctx); err != nil {
				logging.App.Error("Console stopped", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	logging.App.Info("Starting campus chat server", "version", version, "addr", config.ListenAddr, "port", config.Port, "storage", config.StorageBackend)

	reason := "shutdown"
	select {
	case <-ctx.Done():
		reason = "signal"
		logging.App.Info("Shutdown requested")
	case err = <-serveErr:
		if err != nil {
			reason = "error"
			logging.App.Error("Chat server failed", "error", err)
		}
	}

	shutdownErr := server.Shutdown()
	if shutdownErr != nil {
		logging.App.Error("Failed to save state on shutdown", "error", shutdownErr)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		cancel()
	}

	if statusWriter != nil {
		statusWriter.Stop()
		if err := statusWriter.WriteStopFile(reason, time.Since(server.GetStartTime())); err != nil {
			logging.App.Error("Failed to write stop file", "error", err)
		}
	}

	return errors.Join(err, shutdownErr)
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.App.Info("Metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.App.Error("Metrics server error", "error", err)
		}
	}()
	return srv
}
