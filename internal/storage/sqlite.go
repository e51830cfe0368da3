package storage

import "outpass-control/internal/config"

type SQLiteProvider struct {
	SQLProvider
}

func NewSQLiteProvider(config *config.Storage) (provider *SQLiteProvider) {
	base := NewSQLProvider(config, "sqlite3", config.SQLite.Path+"?_foreign_keys=on&_busy_timeout=5000")
	if base == nil {
		return nil
	}
	return &SQLiteProvider{
		SQLProvider: *base,
	}
}
