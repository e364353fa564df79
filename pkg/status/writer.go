// Package status maintains small key/value files describing the chat
// daemon's lifecycle so external tooling can check on it without a
// network connection.
package status

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/mmcdole/campuschat/pkg/logging"
)

const (
	startFile   = "last_start"
	stopFile    = "last_stop"
	runningFile = "running"

	humanTime = "Mon Jan 02 15:04:05 2006"
)

// Provider supplies the live figures written to the running file
type Provider interface {
	GetActiveConnections() int32
	GetOnlineUsers() int
	GetStartTime() time.Time
}

// Writer manages the status files of one daemon process
type Writer struct {
	fs       afero.Fs
	dir      string
	interval time.Duration
	pid      int
	version  string
	provider Provider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Writer storing its files in dir on fs
func New(fs afero.Fs, dir string, interval time.Duration, version string) (*Writer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("status interval must be positive, got %s", interval)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	return &Writer{
		fs:       fs,
		dir:      dir,
		interval: interval,
		pid:      os.Getpid(),
		version:  version,
		stopCh:   make(chan struct{}),
	}, nil
}

// SetProvider sets where the running file figures come from
func (w *Writer) SetProvider(p Provider) {
	w.provider = p
}

// WriteStartFile records the process start
func (w *Writer) WriteStartFile() error {
	now := time.Now()
	err := w.write(startFile,
		"timestamp_unix", now.Unix(),
		"timestamp_human", now.Format(humanTime),
		"pid", w.pid,
		"version", w.version,
	)
	if err != nil {
		return err
	}

	logging.App.Info("Wrote status file", "file", startFile)
	return nil
}

// WriteStopFile records a shutdown with its reason and uptime
func (w *Writer) WriteStopFile(reason string, uptime time.Duration) error {
	now := time.Now()
	err := w.write(stopFile,
		"timestamp_unix", now.Unix(),
		"timestamp_human", now.Format(humanTime),
		"reason", reason,
		"uptime_seconds", int64(uptime.Seconds()),
	)
	if err != nil {
		return err
	}

	logging.App.Info("Wrote status file", "file", stopFile, "reason", reason)
	return nil
}

// StartHeartbeat rewrites the running file now and then every interval
// until Stop is called
func (w *Writer) StartHeartbeat() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.heartbeat()
		for {
			select {
			case <-ticker.C:
				w.heartbeat()
			case <-w.stopCh:
				return
			}
		}
	}()

	logging.App.Info("Started status heartbeat", "interval", w.interval)
}

// Stop ends the heartbeat and removes the running file
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	w.wg.Wait()

	if err := w.fs.Remove(filepath.Join(w.dir, runningFile)); err != nil && !os.IsNotExist(err) {
		logging.App.Warn("Failed to remove running file", "error", err)
	}
	logging.App.Info("Stopped status heartbeat")
}

func (w *Writer) heartbeat() {
	if err := w.WriteRunningFile(); err != nil {
		logging.App.Error("Failed to write running file", "error", err)
	}
}

// WriteRunningFile writes the current connection counts and runtime figures
func (w *Writer) WriteRunningFile() error {
	now := time.Now()

	var (
		startTime   time.Time
		connections int32
		online      int
	)
	if w.provider != nil {
		startTime = w.provider.GetStartTime()
		connections = w.provider.GetActiveConnections()
		online = w.provider.GetOnlineUsers()
	}

	uptime := int64(0)
	if !startTime.IsZero() {
		uptime = int64(now.Sub(startTime).Seconds())
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	err := w.write(runningFile,
		"timestamp_unix", now.Unix(),
		"uptime_seconds", uptime,
		"active_connections", connections,
		"online_users", online,
		"memory_alloc_mb", mem.Alloc/1024/1024,
		"goroutines", runtime.NumGoroutine(),
	)
	if err != nil {
		return err
	}

	logging.App.Debug("Updated running file", "active_connections", connections, "online_users", online)
	return nil
}

// write renders alternating keys and values as "key: value" lines and
// replaces the named file through a temporary file
func (w *Writer) write(name string, keyvals ...interface{}) error {
	var sb strings.Builder
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&sb, "%v: %v\n", keyvals[i], keyvals[i+1])
	}

	path := filepath.Join(w.dir, name)
	tmpPath := path + ".tmp"
	if err := afero.WriteFile(w.fs, tmpPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := w.fs.Rename(tmpPath, path); err != nil {
		w.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
