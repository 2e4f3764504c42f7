package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "fincast.db")
	db, err := Open(ctx, path, []string{
		`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)`,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v string
	if err := db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = 'a'`).Scan(&v); err != nil || v != "b" {
		t.Fatalf("select: %q %v", v, err)
	}
}

func TestMigrateReportsStatement(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, ":memory:", []string{"CREATE TABLE broken ("})
	if err == nil {
		t.Fatalf("expected migration error")
	}
}
