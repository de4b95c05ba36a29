// Package main our entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/voyas/api/internal/config"
	"github.com/voyas/api/internal/database"
	"github.com/voyas/api/internal/logger"
	"github.com/voyas/api/internal/message"
	"github.com/voyas/api/internal/migrate"
	ratelimiter "github.com/voyas/api/internal/rate_limiter"
	"github.com/voyas/api/internal/server"
)

// errPendingMigrations aborts a production start against an outdated schema.
var errPendingMigrations = errors.New("pending migrations")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, config.Load); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("server failed")
	}
}

// run blocks until ctx is done or the listener fails. Configuration and the
// database connection are settled before the listener is opened.
func run(ctx context.Context, out io.Writer, load func() (*config.Config, error)) error {
	startedAt := time.Now()

	cfg, err := load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(out, cfg.LogLevel, cfg.IsProduction())
	log.Info().Str("env", cfg.Env).Str("version", server.Version).Msg("Starting application...")

	// Init DB
	log.Info().
		Str("target", cfg.Database.Redacted()).
		Str("source", string(cfg.Database.Source)).
		Stringer("tls", cfg.Database.TLS).
		Bool("log_queries", cfg.Database.LogQueries).
		Msg("Initializing Database connection...")

	poolCfg, err := cfg.Database.PoolConfig(logger.QueryTracer(log))
	if err != nil {
		return err
	}

	dbConn, err := connect(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to the postgresql database: %w", err)
	}
	defer dbConn.Close()

	if err := checkSchema(ctx, log, cfg, dbConn); err != nil {
		return err
	}

	dbQueries := database.New(dbConn)
	messages := message.NewService(dbQueries)

	var limiter *ratelimiter.IPRateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = ratelimiter.NewIPRateLimiter(ctx, log, cfg.RateLimit.Requests, cfg.RateLimit.Window,
			ratelimiter.CleanupOpts{
				TTL:      10 * time.Minute,
				Interval: time.Minute,
			})
	}

	router := server.NewRouter(server.Deps{
		Logger:         log,
		Messages:       messages,
		DB:             dbConn,
		StartedAt:      startedAt,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("prefix", cfg.APIPrefix).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

// connect opens the pool and verifies it once. There is no retry: a failed
// connection aborts startup.
func connect(ctx context.Context, poolCfg *pgxpool.Config) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// checkSchema refuses to serve a production database with pending
// migrations. Outside production it only warns. It never applies migrations.
func checkSchema(ctx context.Context, log zerolog.Logger, cfg *config.Config, pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	provider, err := migrate.NewProvider(sqlDB)
	if err != nil {
		return err
	}

	state, err := migrate.Inspect(ctx, pool, provider)
	if err != nil {
		return err
	}

	if !state.Pending() {
		log.Info().Int64("version", state.Applied).Msg("schema is up to date")
		return nil
	}

	if !cfg.Database.Synchronize {
		return fmt.Errorf("%w: applied %d, latest %d", errPendingMigrations, state.Applied, state.Latest)
	}
	log.Warn().
		Int64("applied", state.Applied).
		Int64("latest", state.Latest).
		Msg("pending migrations; run `go run ./cmd/migrate up`")
	return nil
}
