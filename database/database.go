package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"taskboard/utilities"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ConnectPostgres opens and pings a lib/pq connection pool.
func ConnectPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		utilities.LogError(err, "ConnectPostgres: failed to open connection")
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		utilities.LogError(err, "ConnectPostgres: failed to reach database")
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	utilities.LogInfo("Connected to PostgreSQL")
	return db, nil
}

// Migrate brings the schema up to date with the embedded goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	utilities.LogDebug(format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	l := utilities.Logger()
	l.Error().Msgf(format, v...)
	os.Exit(1)
}
