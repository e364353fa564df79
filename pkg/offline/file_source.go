package offline

import (
	"strings"

	"github.com/spf13/afero"

	"github.com/mmcdole/campuschat/pkg/logging"
	"github.com/mmcdole/campuschat/pkg/storage"
)

// FileSource implements Source with a flat file holding one
// "recipient message..." line per pending message
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource creates a new FileSource for path on fs
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{
		fs:   fs,
		path: path,
	}
}

// LoadMessages implements Source. Lines without a message part are skipped.
func (s *FileSource) LoadMessages() ([]Entry, error) {
	var entries []Entry
	err := storage.ReadLines(s.fs, s.path, func(lineNo int, line string) {
		if line == "" {
			return
		}
		recipient, message, ok := strings.Cut(line, " ")
		if !ok || recipient == "" || message == "" {
			logging.App.Warn("Skipping malformed offline message", "path", s.path, "line", lineNo)
			return
		}
		entries = append(entries, Entry{Recipient: recipient, Message: message})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveMessages implements Source by rewriting the whole file
func (s *FileSource) SaveMessages(entries []Entry) error {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Recipient+" "+e.Message)
	}
	return storage.WriteLines(s.fs, s.path, lines)
}
