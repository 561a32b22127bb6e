package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/energy-plan-advisor/internal/testutil"
)

var expectedTables = []string{
	"suppliers", "plans", "customers", "customer_usage",
	"customer_preferences", "recommendations", "feedback",
}

func tableCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_type = 'BASE TABLE'
		AND table_name <> 'schema_migrations'
	`).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestMigrations(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	sqlDB := tdb.DB()
	m := testutil.NewMigrator(t, sqlDB)

	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{
			name: "schema is at the latest version",
			test: func(t *testing.T) {
				version, dirty, err := m.Version()
				require.NoError(t, err)
				assert.False(t, dirty)
				assert.Equal(t, uint(2), version)

				for _, table := range expectedTables {
					var exists bool
					require.NoError(t, sqlDB.QueryRow(
						`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
					).Scan(&exists))
					assert.True(t, exists, "table %s", table)
				}
			},
		},
		{
			name: "down and up are reversible",
			test: func(t *testing.T) {
				require.NoError(t, m.Down())
				_, _, err := m.Version()
				assert.True(t, errors.Is(err, migrate.ErrNilVersion))
				assert.Zero(t, tableCount(t, sqlDB))

				require.NoError(t, m.Up())
				assert.Equal(t, len(expectedTables), tableCount(t, sqlDB))
			},
		},
		{
			name: "steps back one migration",
			test: func(t *testing.T) {
				require.NoError(t, m.Steps(-1))
				version, _, err := m.Version()
				require.NoError(t, err)
				assert.Equal(t, uint(1), version)
				assert.Equal(t, len(expectedTables)-1, tableCount(t, sqlDB))

				require.NoError(t, m.Steps(1))
			},
		},
		{
			name: "check constraints reject out of range values",
			test: func(t *testing.T) {
				_, err := sqlDB.Exec(`INSERT INTO suppliers (id, name, rating) VALUES (gen_random_uuid(), 'Bad', 7)`)
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}
