package testutil

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/energy-plan-advisor/internal/testutil/containers"
)

// TestDB is a migrated database running in a throwaway container.
type TestDB struct {
	t         *testing.T
	container *containers.PostgresContainer
	sqlDB     *sql.DB
	pool      *pgxpool.Pool
}

// NewTestDB starts PostgreSQL, applies every migration and registers cleanup.
// Tests using it are skipped under -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()
	container, err := containers.NewPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	sqlDB, err := sql.Open("postgres", container.ConnectionString)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, sqlDB.PingContext(ctx))

	m := NewMigrator(t, sqlDB)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, container.ConnectionString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &TestDB{t: t, container: container, sqlDB: sqlDB, pool: pool}
}

// MigrationsPath is the absolute path of the repository's migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// NewMigrator returns a golang-migrate instance bound to db and the repository migrations.
func NewMigrator(t *testing.T, db *sql.DB) *migrate.Migrate {
	t.Helper()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	require.NoError(t, err)

	m, err := migrate.NewWithDatabaseInstance("file://"+MigrationsPath(), "postgres", driver)
	require.NoError(t, err)
	return m
}

func (tdb *TestDB) DB() *sql.DB {
	return tdb.sqlDB
}

func (tdb *TestDB) Pool() *pgxpool.Pool {
	return tdb.pool
}

func (tdb *TestDB) ConnectionString() string {
	return tdb.container.ConnectionString
}

// Truncate empties every application table, keeping the schema.
func (tdb *TestDB) Truncate() {
	tdb.t.Helper()
	_, err := tdb.pool.Exec(context.Background(), `
		TRUNCATE feedback, recommendations, customer_preferences, customer_usage,
			customers, plans, suppliers CASCADE`)
	require.NoError(tdb.t, err)
}
