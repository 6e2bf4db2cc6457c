package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenAndMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "drinks.db")

	db, err := Open(ctx, "sqlite3", dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Second run is a no-op.
	if err := Migrate(ctx, db, "sqlite3"); err != nil {
		t.Fatalf("Migrate again: %v", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO drink (title, recipe) VALUES (?, ?)`, "water", `[]`); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}
}

func TestMigrate_UnknownDriver(t *testing.T) {
	if err := Migrate(context.Background(), nil, "postgres"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpen_GivesUpAfterRetries(t *testing.T) {
	opts := Options{Retries: 1, RetryBackoff: time.Millisecond}
	// Unreachable port; the mysql driver fails at ping time.
	_, err := OpenWithOptions(context.Background(), "mysql", "u:p@tcp(127.0.0.1:1)/x?timeout=100ms", opts)
	if err == nil {
		t.Fatalf("expected ping failure")
	}
}
