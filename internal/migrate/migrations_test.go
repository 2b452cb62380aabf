package migrate

import (
	"testing"

	"journalmate/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	v, err := Version(conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 1 {
		t.Fatalf("schema version = %d, want 1", v)
	}

	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v2, err := Version(conn)
	if err != nil {
		t.Fatalf("version after re-run: %v", err)
	}
	if v2 != v {
		t.Fatalf("re-run changed version from %d to %d", v, v2)
	}
}
