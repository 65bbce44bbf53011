// Package main provides a CLI tool for the lab manager database migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/labmanager-service/internal/config"
	"github.com/helixir/labmanager-service/internal/database"
	"github.com/helixir/labmanager-service/internal/observability"
)

type actionKind int

const (
	actionUp actionKind = iota + 1
	actionDown
	actionSteps
	actionVersion
	actionForce
)

// action is one migration command parsed from the command line.
type action struct {
	kind  actionKind
	steps int
	force int
	path  string
}

var errNoAction = errors.New("no action specified")

// parseAction turns command-line arguments into exactly one action.
// Rolling back everything requires -yes since it drops all lab data.
func parseAction(args []string, stderr io.Writer) (action, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	up := fs.Bool("up", false, "Run all pending migrations")
	down := fs.Bool("down", false, "Roll back all migrations")
	yes := fs.Bool("yes", false, "Confirm -down")
	steps := fs.Int("steps", 0, "Run N migration steps (positive=up, negative=down)")
	version := fs.Bool("version", false, "Print the current migration version")
	force := fs.Int("force", -1, "Force set migration version (use to recover from failed migrations)")
	path := fs.String("path", "", "Override the migrations directory path")
	if err := fs.Parse(args); err != nil {
		return action{}, err
	}

	var picked []action
	if *up {
		picked = append(picked, action{kind: actionUp})
	}
	if *down {
		picked = append(picked, action{kind: actionDown})
	}
	if *steps != 0 {
		picked = append(picked, action{kind: actionSteps, steps: *steps})
	}
	if *version {
		picked = append(picked, action{kind: actionVersion})
	}
	if *force >= 0 {
		picked = append(picked, action{kind: actionForce, force: *force})
	}

	switch len(picked) {
	case 0:
		fs.Usage()
		fmt.Fprintln(stderr, "\nPlease specify one of: -up, -down -yes, -steps N, -version, -force V")
		return action{}, errNoAction
	case 1:
	default:
		return action{}, fmt.Errorf("specify only one action at a time")
	}

	a := picked[0]
	if a.kind == actionDown && !*yes {
		return action{}, fmt.Errorf("-down removes every person and publication; rerun with -yes to confirm")
	}
	a.path = *path
	return a, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	act, err := parseAction(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}

	// Load configuration (database settings from env/config file).
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output for the CLI tool.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if act.path != "" {
		migrationDir = act.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, act, logger); err != nil {
		return err
	}
	printVersion(migrator, logger)
	return nil
}

// migrationRunner is the subset of *database.Migrator the CLI drives.
type migrationRunner interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

var _ migrationRunner = (*database.Migrator)(nil)

// apply executes a parsed action.
func apply(m migrationRunner, a action, logger zerolog.Logger) error {
	switch a.kind {
	case actionUp:
		logger.Info().Msg("running all pending migrations")
		if err := m.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		logger.Warn().Msg("rolling back all migrations")
		if err := m.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionSteps:
		logger.Info().Int("steps", a.steps).Msg("running migration steps")
		if err := m.Steps(a.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case actionForce:
		logger.Warn().Int("version", a.force).Msg("forcing migration version")
		if err := m.Force(a.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case actionVersion:
	default:
		return errNoAction
	}
	return nil
}

// printVersion logs the current migration version.
func printVersion(m migrationRunner, logger zerolog.Logger) {
	v, dirty, err := m.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
