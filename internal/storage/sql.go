package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"outpass-control/internal/config"
)

type SQLProvider struct {
	db *sqlx.DB

	config *config.Storage

	logger *slog.Logger
}

func NewSQLProvider(config *config.Storage, driverName string, dataSource string) (provider *SQLProvider) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil
	}

	logger := slog.With("component", "storage")

	return &SQLProvider{
		db:     db,
		config: config,
		logger: logger,
	}
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetSchemaVersion returns the currently applied migration version, or 0 for
// an empty database.
func (p *SQLProvider) GetSchemaVersion(ctx context.Context) (int, error) {
	var exists int
	err := p.db.GetContext(ctx, &exists,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`)
	if err != nil {
		return -1, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = p.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err != nil {
		return -1, err
	}
	return version, nil
}

// runMigrations brings the schema up to the latest embedded migration.
func (p *SQLProvider) runMigrations(driver string) error {
	ctx := context.Background()

	prior, err := p.GetSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	runner := NewMigrationRunner(driver)
	migrations, err := runner.LoadMigrations(prior, -1)
	if err != nil {
		if errors.Is(err, ErrMigrateCurrentVersionSameAsTarget) {
			p.logger.Debug("Schema is up to date", "version", prior)
			return nil
		}
		return err
	}

	if _, err := p.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	for _, migration := range migrations {
		p.logger.Info("Applying migration", "version", migration.Version, "name", migration.Name, "up", migration.Up)

		tx, err := p.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %04d_%s failed: %w", migration.Version, migration.Name, err)
		}
		if migration.Up {
			_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, migration.Version)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, migration.Version)
		}
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// buildInQuery expands an IN (?) placeholder for a string set.
func buildInQuery(query string, set []string, rest ...any) (string, []any, error) {
	args := make([]any, 0, len(rest)+1)
	args = append(args, set)
	args = append(args, rest...)
	return sqlx.In(query, args...)
}

// mapRowError normalizes driver errors into the package sentinels.
func mapRowError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRecord
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}
