// Package storage holds the persistence plumbing shared by the user
// directory and the offline queue: line-oriented flat files on an afero
// filesystem and the SQLite database used by the sqlite backend.
package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ReadLines calls fn for each line of the file at path, passing its 1-based
// line number. A missing file yields no lines and no error.
func ReadLines(fs afero.Fs, path string, fn func(lineNo int, line string)) error {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fn(lineNo, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// WriteLines replaces the file at path with lines, one per line. The content
// is written to a temporary file first and renamed into place so readers
// never observe a partial rewrite.
func WriteLines(fs afero.Fs, path string, lines []string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmpPath := path + ".tmp"
	f, err := fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			fs.Remove(tmpPath)
			return fmt.Errorf("writing %s: %w", tmpPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		fs.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		fs.Remove(tmpPath) // Clean up temp file on error
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
