package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/solvenote/solvenote/pkg/observability"
)

// Supported goose dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its dialect, base FS and logger in package globals
var migrateMu sync.Mutex

// Migrate applies all pending migrations
func Migrate(ctx context.Context, db *sql.DB, dialect string, logger *observability.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{logger.WithComponent("migrations")})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the current schema version
func MigrationVersion(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, nil
}

type gooseLogger struct {
	logger *observability.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.logger.Infof(format, v...)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.logger.Errorf(format, v...)
	os.Exit(1)
}
