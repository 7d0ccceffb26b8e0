// Package storage owns the relational schema shared by the credit and
// billing stores and the connections used to reach it.
//
// Schema changes live in migrations/ as goose SQL files embedded into the
// binary. The SQL is kept to the subset PostgreSQL and SQLite agree on so the
// same migrations back both production and the in-memory test databases:
//
//	db, err := postgres.Connect(ctx, postgres.ConnectionConfig{URL: url})
//	err = storage.Migrate(ctx, db, storage.DialectPostgres, logger)
//
// Subpackage postgres opens the lib/pq pool and the optional Redis client.
// Subpackage storagetest provides migrated SQLite and PostgreSQL databases
// for tests.
package storage
