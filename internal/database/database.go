// Package database centralises sqlx connection helpers and schema
// migrations.  Two drivers are wired: mattn/go-sqlite3 (the default, a single
// file next to the binary) and go-sql-driver/mysql for shared deployments.
//
// Public entry points:
//
//	Open(ctx, driver, dsn)              – conservative pool defaults.
//	OpenWithOptions(ctx, driver, dsn, opts) – fine-grained control.
//	Migrate(ctx, db, driver)            – apply embedded goose migrations.
//
// Both Open helpers Ping the database before returning, retrying on failure,
// so callers can fail fast during bootstrap.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Options tunes the pool and the bootstrap ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // doubled after each failed attempt
}

// DefaultOptions returns 15 max open, 5 idle, a 30-minute connection
// lifetime, and three ping retries.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         3,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, driver, dsn, DefaultOptions())
}

// OpenWithOptions opens the pool and pings it until it answers, the retry
// budget is spent, or ctx ends.
func OpenWithOptions(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	wait := opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		zap.S().Warnw("database ping failed, retrying", "driver", driver, "attempt", attempt+1, "err", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = db.Close()
			return nil, ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping %s: %w", driver, err)
}
