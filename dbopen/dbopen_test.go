package dbopen

import (
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys: got %d, want 1", fk)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE things (id TEXT PRIMARY KEY)`))

	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count: got %d, want 1", n)
	}
}

func TestOpen_BadDriver(t *testing.T) {
	if _, err := Open(":memory:", WithDriver("no-such-driver")); err == nil {
		t.Fatal("want error for unregistered driver")
	}
}
