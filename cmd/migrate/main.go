package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

const defaultMigrationsDir = "migrations"

var migrationFile = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

func main() {
	var (
		action     = flag.String("action", "up", "Migration action: up, down, status, create")
		name       = flag.String("name", "", "Migration name (for create action)")
		steps      = flag.Int("steps", 0, "Number of migrations to run (0 = all)")
		dir        = flag.String("dir", defaultMigrationsDir, "Migrations directory")
		configPath = flag.String("config", "", "Path to configuration file")
	)
	flag.Parse()

	if *action == "create" {
		if *name == "" {
			slog.Error("migration name is required for create action")
			os.Exit(1)
		}
		if err := create(*dir, *name); err != nil {
			slog.Error("failed to create migration", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m, err := newMigrator(db, *dir)
	if err != nil {
		slog.Error("failed to initialize migrator", "error", err)
		os.Exit(1)
	}

	if err := runAction(m, *action, *steps); err != nil {
		slog.Error("migration failed", "action", *action, "error", err)
		os.Exit(1)
	}
}

func newMigrator(db *sql.DB, dir string) (*migrate.Migrate, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	return migrate.NewWithDatabaseInstance("file://"+abs, "postgres", driver)
}

func runAction(m *migrate.Migrate, action string, steps int) error {
	var err error
	switch action {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "status":
		return status(m)
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("no pending migrations")
		return nil
	}
	if err != nil {
		return err
	}
	return status(m)
}

func status(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("no migrations applied")
		return nil
	case err != nil:
		return err
	}
	slog.Info("migration status", "version", version, "dirty", dirty)
	return nil
}

// create writes an empty up/down pair numbered after the highest existing migration.
func create(dir, name string) error {
	if !regexp.MustCompile(`^[a-z0-9_]+$`).MatchString(name) {
		return fmt.Errorf("migration name %q must be lower snake case", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	next, err := nextVersion(dir)
	if err != nil {
		return err
	}

	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(dir, fmt.Sprintf("%06d_%s.%s.sql", next, name, direction))
		content := fmt.Sprintf("-- %s: %s\n", direction, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to create migration file: %w", err)
		}
		slog.Info("created migration", "file", path)
	}
	return nil
}

func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var versions []int
	for _, e := range entries {
		match := migrationFile.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		v, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return 1, nil
	}
	sort.Ints(versions)
	return versions[len(versions)-1] + 1, nil
}
