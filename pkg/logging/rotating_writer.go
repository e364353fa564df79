package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// keepArchives bounds how many rolled logs stay beside the live one
	keepArchives = 10
	// archiveStamp is appended to the log name when it is rolled
	archiveStamp = "20060102-150405"
)

// RotatingWriter appends to a log file. Once the file reaches limit bytes it
// is renamed to <name>.<stamp> and a new file is started at the same path.
// A background check reattaches to the path when the file is moved or
// deleted underneath the server.
type RotatingWriter struct {
	path  string
	limit int64

	mu      sync.Mutex
	file    *os.File
	written int64

	quit chan struct{}
	done chan struct{}
}

// NewRotatingWriter opens path for appending, checking every checkEvery that
// it still writes to the file at path. A file already at limit is rolled
// before the first write.
func NewRotatingWriter(path string, limit int64, checkEvery time.Duration) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{
		path:  path,
		limit: limit,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if err := w.attach(); err != nil {
		return nil, err
	}
	if w.written >= w.limit {
		if err := w.roll(time.Now()); err != nil {
			_ = w.file.Close()
			return nil, err
		}
	}

	go w.watch(checkEvery)
	return w, nil
}

// Write implements io.Writer
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written+int64(len(p)) >= w.limit {
		if err := w.roll(time.Now()); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Close stops the background check and closes the file
func (w *RotatingWriter) Close() error {
	close(w.quit)
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *RotatingWriter) watch(every time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-w.quit:
			return
		case <-ticker.C:
			w.mu.Lock()
			if err := w.reattachIfMoved(); err != nil {
				fmt.Fprintf(os.Stderr, "log file %s unavailable: %v\n", w.path, err)
			}
			w.mu.Unlock()
		}
	}
}

// attach opens the live file and picks up its current size
func (w *RotatingWriter) attach() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = f
	w.written = info.Size()
	return nil
}

// reattachIfMoved reopens the path when the open file is no longer the one
// found there. Caller holds mu.
func (w *RotatingWriter) reattachIfMoved() error {
	onDisk, err := os.Stat(w.path)
	if err == nil {
		open, statErr := w.file.Stat()
		if statErr == nil && os.SameFile(open, onDisk) {
			w.written = open.Size()
			return nil
		}
	}

	_ = w.file.Close()
	return w.attach()
}

// roll archives the live file and starts an empty one. Caller holds mu.
func (w *RotatingWriter) roll(now time.Time) error {
	_ = w.file.Close()

	if err := os.Rename(w.path, w.archivePath(now)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("archiving log file: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	w.file = f
	w.written = 0

	w.trimArchives()
	return nil
}

// archivePath names the archive for now, adding a counter when several rolls
// land in the same second
func (w *RotatingWriter) archivePath(now time.Time) string {
	name := w.path + "." + now.Format(archiveStamp)
	candidate := name
	for i := 1; ; i++ {
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", name, i)
	}
}

func (w *RotatingWriter) trimArchives() {
	dir, base := filepath.Split(w.path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var archives []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), base+".") {
			archives = append(archives, e.Name())
		}
	}
	if len(archives) <= keepArchives {
		return
	}

	// Stamps sort oldest first
	sort.Strings(archives)
	for _, name := range archives[:len(archives)-keepArchives] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}
