package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/afero"

	"github.com/mmcdole/campuschat/pkg/offline"
	"github.com/mmcdole/campuschat/pkg/storage"
	"github.com/mmcdole/campuschat/pkg/users"
)

// stores holds the persistence backends of both registries
type stores struct {
	users    users.Source
	messages offline.Source
	db       *sql.DB // nil for the file backend
}

func openStores(config *Config, fs afero.Fs) (*stores, error) {
	switch config.StorageBackend {
	case BackendSQLite:
		db, err := storage.OpenSQLite(config.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    users.NewSQLSource(db),
			messages: offline.NewSQLSource(db),
			db:       db,
		}, nil
	case BackendFile:
		return &stores{
			users:    users.NewFileSource(fs, config.UserDataFile),
			messages: offline.NewFileSource(fs, config.OfflineMessagesFile),
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.StorageBackend)
	}
}

func (s *stores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
