package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/Valian/extractous-go/dbopen"
)

func TestOpenAppliesPragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var fk, sync, busy int
	var journal string
	for _, p := range []struct {
		pragma string
		dest   any
	}{
		{"PRAGMA foreign_keys", &fk},
		{"PRAGMA synchronous", &sync},
		{"PRAGMA busy_timeout", &busy},
		{"PRAGMA journal_mode", &journal},
	} {
		if err := db.QueryRow(p.pragma).Scan(p.dest); err != nil {
			t.Fatalf("%s: %v", p.pragma, err)
		}
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
	if sync != 1 {
		t.Errorf("synchronous = %d, want 1 (NORMAL)", sync)
	}
	if busy != 10_000 {
		t.Errorf("busy_timeout = %d, want 10000", busy)
	}
	// An in-memory database reports "memory" even after the WAL pragma.
	if journal != "wal" && journal != "memory" {
		t.Errorf("journal_mode = %q", journal)
	}
}

func TestOpenOptions(t *testing.T) {
	db := dbopen.OpenMemory(t,
		dbopen.WithBusyTimeout(5000),
		dbopen.WithSynchronous("FULL"),
		dbopen.WithoutForeignKeys(),
		dbopen.WithCacheSize(-64000),
	)

	var busy, sync, fk, cache int
	db.QueryRow("PRAGMA busy_timeout").Scan(&busy)
	db.QueryRow("PRAGMA synchronous").Scan(&sync)
	db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	db.QueryRow("PRAGMA cache_size").Scan(&cache)
	if busy != 5000 || sync != 2 || fk != 0 || cache != -64000 {
		t.Fatalf("pragmas = busy:%d sync:%d fk:%d cache:%d", busy, sync, fk, cache)
	}
}

func TestOpenWithSchema(t *testing.T) {
	// The job store and the rate limiter both bootstrap their tables
	// through schema options on a shared handle.
	db := dbopen.OpenMemory(t, dbopen.WithSchema(
		`CREATE TABLE docs (id TEXT PRIMARY KEY, body TEXT)`,
	))
	if _, err := db.Exec(`INSERT INTO docs (id, body) VALUES ('1', 'hello')`); err != nil {
		t.Fatalf("insert into schema-created table: %v", err)
	}
}

func TestOpenWithSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(path, []byte(`CREATE TABLE docs (id TEXT PRIMARY KEY)`), 0o644); err != nil {
		t.Fatal(err)
	}
	db := dbopen.OpenMemory(t, dbopen.WithSchemaFile(path))
	if _, err := db.Exec(`INSERT INTO docs (id) VALUES ('1')`); err != nil {
		t.Fatalf("insert into schema-file table: %v", err)
	}
}

func TestOpenWithMkdirAll(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "var", "db", "jobs.db")
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Fatalf("parent directory not created: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("no such table: docs"), false},
		{errors.New("SQLITE_BUSY (5)"), true},
		{errors.New("database is locked"), true},
		{errors.New("database table is locked: docs"), true},
	} {
		if got := dbopen.IsBusy(tc.err); got != tc.want {
			t.Errorf("IsBusy(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRunTxCommit(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE docs (id TEXT PRIMARY KEY, body TEXT)`))

	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO docs (id, body) VALUES ('1', 'hello')`)
		return err
	})
	if err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	var body string
	if err := db.QueryRow(`SELECT body FROM docs WHERE id = '1'`).Scan(&body); err != nil {
		t.Fatal(err)
	}
	if body != "hello" {
		t.Fatalf("body = %q", body)
	}
}

func TestRunTxRollsBackOnError(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE docs (id TEXT PRIMARY KEY)`))

	sentinel := errors.New("no thanks")
	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		tx.Exec(`INSERT INTO docs (id) VALUES ('1')`)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunTx error = %v, want sentinel", err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM docs`).Scan(&count)
	if count != 0 {
		t.Fatalf("count = %d after rollback, want 0", count)
	}
}

func TestRunTxRetriesBusy(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE docs (id TEXT PRIMARY KEY)`))

	calls := 0
	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		calls++
		if calls == 1 {
			return errors.New("database is locked")
		}
		_, err := tx.Exec(`INSERT INTO docs (id) VALUES ('1')`)
		return err
	})
	if err != nil {
		t.Fatalf("RunTx after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRunTxNoRetryOnOtherErrors(t *testing.T) {
	db := dbopen.OpenMemory(t)

	calls := 0
	sentinel := errors.New("constraint violated")
	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry for non-BUSY errors)", calls)
	}
}

func TestRunTxCancelledContext(t *testing.T) {
	db := dbopen.OpenMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error { return nil })
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestExec(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE docs (id TEXT PRIMARY KEY)`))

	res, err := dbopen.Exec(context.Background(), db, `INSERT INTO docs (id) VALUES (?)`, "1")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("rows affected = %d", n)
	}
}
