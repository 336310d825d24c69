package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"calibtrack/internal/db"
)

// openTestDB returns a private in-memory database with the production
// schema. It is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenMemory(context.Background(), "test_"+strings.ReplaceAll(t.Name(), "/", "_"))
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return w
}

func ptr[T any](v T) *T { return &v }
