package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// dialects maps a database/sql driver name to its goose dialect.
var dialects = map[string]goose.Dialect{
	"sqlite3": goose.DialectSQLite3,
	"mysql":   goose.DialectMySQL,
}

// Migrate applies every pending migration for driver.  Each driver has its
// own directory under migrations/ because the DDL differs.
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	dialect, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", driver)
	}

	fsys, err := fs.Sub(migrations, "migrations/"+driver)
	if err != nil {
		return err
	}

	p, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		zap.S().Infow("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
