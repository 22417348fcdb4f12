//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/michaeltoohig/unofficial-vfsc-graph/db"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/database"
)

const databaseName = "vfsc_test"

// PostgresContainer is a migrated Postgres instance for repository tests.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *database.DatabaseInstance
}

// NewPostgres starts Postgres, applies every migration and registers cleanup.
func NewPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()
	logger := NewLogger()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase(databaseName),
		tcpostgres.WithUsername("vfsc"),
		tcpostgres.WithPassword("vfsc"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	conn.SetConnMaxLifetime(time.Minute)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Source: db.Migrations,
		Dir:    db.MigrationsDir,
	})
	if err := migrations.Migrate(databaseName, conn.DB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DB:        database.NewDatabaseInstance(conn, logger),
	}
}

// Truncate empties every table between tests.
func (p *PostgresContainer) Truncate(t *testing.T) {
	t.Helper()
	_, err := p.DB.ExecContext(context.Background(),
		`TRUNCATE failed_items, ingest_sessions, change_records, shareholders, directors, individuals, companies RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
}

func NewLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
