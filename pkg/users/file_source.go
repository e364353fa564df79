package users

import (
	"github.com/spf13/afero"

	"github.com/mmcdole/campuschat/pkg/logging"
	"github.com/mmcdole/campuschat/pkg/storage"
)

// FileSource implements Source with a flat file, one user per line
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

// LoadUsers implements Source. Malformed lines are skipped with a warning.
func (s *FileSource) LoadUsers() ([]*User, error) {
	var users []*User
	err := storage.ReadLines(s.fs, s.path, func(lineNo int, line string) {
		if line == "" {
			return
		}
		u, err := ParseRecord(line)
		if err != nil {
			logging.App.Warn("Skipping malformed user record", "path", s.path, "line", lineNo, "error", err)
			return
		}
		users = append(users, u)
	})
	if err != nil {
		return nil, err
	}

	logging.App.Debug("Loaded user file", "path", s.path, "users", len(users))
	return users, nil
}

// SaveUsers implements Source by rewriting the whole file
func (s *FileSource) SaveUsers(users []*User) error {
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, FormatRecord(u))
	}
	return storage.WriteLines(s.fs, s.path, lines)
}
