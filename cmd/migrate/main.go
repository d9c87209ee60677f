package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/segyhp/microloan-ledger/internal/app"
	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/logging"
	"github.com/segyhp/microloan-ledger/internal/repository"

	"github.com/golang-migrate/migrate/v4"
)

func main() {
	direction := flag.String("direction", "up", "up, down, or version")
	steps := flag.Int("steps", 0, "number of migrations to apply; 0 means all (down always needs a count)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logging)

	if err := run(cfg, *direction, *steps, logger); err != nil {
		logger.Error("Migration failed", slog.String("direction", *direction), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, direction string, steps int, logger *slog.Logger) error {
	db, err := app.InitDB(context.Background(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := repository.NewMigrator(db)
	if err != nil {
		return err
	}

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps <= 0 {
			return errors.New("down needs -steps greater than zero")
		}
		err = m.Steps(-steps)
	case "version":
	default:
		return errors.New("direction must be up, down or version")
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return verr
	}
	logger.Info("Schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}
