// planctl runs usage analysis and plan recommendations offline, without a database or
// cache, and seeds the development catalog.
//
// Usage:
//
//	planctl analyze --usage usage.csv
//	planctl recommend --usage usage.csv --plans plans.json [options]
//	planctl seed [--config config.yaml] [--dry-run]
package main

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "planctl",
		Usage:   "Analyze energy usage and rank plans from local files",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log pipeline progress to stderr",
				EnvVars: []string{"PLANCTL_VERBOSE"},
			},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			recommendCommand(),
			seedCommand(),
		},
	}
}

func usageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "usage",
			Aliases:  []string{"u"},
			Usage:    "Path to a usage CSV with a date and a kWh column",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "date-column",
			Usage: "Header of the date column",
		},
		&cli.StringFlag{
			Name:  "usage-column",
			Usage: "Header of the kWh column",
		},
	}
}

func newLogger(c *cli.Context) *zap.Logger {
	if !c.Bool("verbose") {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func writeJSON(c *cli.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
