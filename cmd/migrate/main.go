// Command migrate applies the embedded schema migrations to the configured
// database. The API server never changes the schema itself.
//
//	go run ./cmd/migrate [-timeout 30s] up|down|status|version|reset
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/voyas/api/internal/config"
	"github.com/voyas/api/internal/logger"
	"github.com/voyas/api/internal/migrate"
)

var errUsage = errors.New("usage: migrate [-timeout d] up|down|status|version|reset")

var commands = map[string]bool{"up": true, "down": true, "status": true, "version": true, "reset": true}

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline for the command")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, os.Stderr, config.Load, flag.Args()); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("migrate failed")
	}
}

func run(ctx context.Context, out io.Writer, load func() (*config.Config, error), args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if !commands[args[0]] {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}

	cfg, err := load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(out, cfg.LogLevel, cfg.IsProduction())

	poolCfg, err := cfg.Database.PoolConfig(nil)
	if err != nil {
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := migrate.NewProvider(db)
	if err != nil {
		return err
	}

	log.Info().Str("target", cfg.Database.Redacted()).Str("command", args[0]).Msg("running migrations")

	switch args[0] {
	case "up":
		results, err := provider.Up(ctx)
		logResults(log, results)
		return err
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			logResults(log, []*goose.MigrationResult{result})
		}
		return err
	case "reset":
		results, err := provider.DownTo(ctx, 0)
		logResults(log, results)
		return err
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			ev := log.Info().Int64("version", s.Source.Version).Str("state", string(s.State))
			if !s.AppliedAt.IsZero() {
				ev = ev.Time("applied_at", s.AppliedAt)
			}
			ev.Msg(s.Source.Path)
		}
		return nil
	case "version":
		state, err := migrate.Inspect(ctx, pool, provider)
		if err != nil {
			return err
		}
		log.Info().
			Int64("applied", state.Applied).
			Int64("latest", state.Latest).
			Bool("pending", state.Pending()).
			Msg("schema version")
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func logResults(log zerolog.Logger, results []*goose.MigrationResult) {
	if len(results) == 0 {
		log.Info().Msg("no migrations to run")
		return
	}
	for _, r := range results {
		ev := log.Info()
		if r.Error != nil {
			ev = log.Error().Err(r.Error)
		}
		ev.Int64("version", r.Source.Version).
			Str("direction", r.Direction).
			Dur("duration", r.Duration).
			Msg(r.Source.Path)
	}
}
