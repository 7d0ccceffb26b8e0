// Package storagetest provides migrated databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/stretchr/testify/require"

	"github.com/solvenote/solvenote/pkg/observability"
	"github.com/solvenote/solvenote/pkg/storage"
)

// NewSQLiteDB opens a private in-memory SQLite database with all migrations applied.
// The pool is pinned to one connection because every :memory: connection is a
// separate database.
func NewSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.Migrate(context.Background(), db, storage.DialectSQLite, observability.NewNopLogger()))
	return db
}
