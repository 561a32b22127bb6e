package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/database"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/repository"
	"github.com/davidleathers/energy-plan-advisor/internal/service/catalog"
)

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load the development supplier and plan catalog into the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the service configuration file",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the catalog as a plans file instead of writing it",
			},
		},
		Action: runSeed,
	}
}

func runSeed(c *cli.Context) error {
	if c.Bool("dry-run") {
		_, plans := catalog.DevCatalog(time.Now().UTC())
		return writeJSON(c, plans)
	}

	ctx := context.Background()
	logger := newLogger(c)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	pool, err := database.NewConnectionPool(ctx, &cfg.Database, nil, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool.Pool())
	res, err := catalog.Seed(ctx, store, time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Info("catalog seeded",
		zap.Int("suppliers", res.Suppliers),
		zap.Int("plans", res.Plans),
		zap.Bool("skipped", res.Skipped))

	// A running API may have cached the empty catalog.
	if !res.Skipped {
		appCache, err := cache.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating cache: %w", err)
		}
		defer appCache.Close()
		catalog.NewCachedCatalog(store, appCache, nil, logger, catalog.Config{}).InvalidateAll(ctx)
	}

	return writeJSON(c, res)
}
