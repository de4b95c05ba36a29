// Package testutil wires database-backed tests to TEST_DB_URL.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/voyas/api/internal/migrate"
)

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

// DB is a test database with every migration rolled back.
type DB struct {
	Pool     *pgxpool.Pool
	SQL      *sql.DB
	Provider *goose.Provider
}

// DbInit connects to TEST_DB_URL and resets the schema. The calling test is
// skipped when TEST_DB_URL is not set. Cleanup is registered on t.
func DbInit(t testing.TB) *DB {
	t.Helper()

	root := ProjectRoot()

	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil {
		t.Logf("failed to load .env file: %+v", err)
	}

	testURL := os.Getenv("TEST_DB_URL")
	if testURL == "" {
		t.Skip("TEST_DB_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, testURL)
	if err != nil {
		t.Fatalf("could not connect to the postgresql database: %v", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		t.Fatalf("could not ping the postgresql database: %v", err)
	}

	dbForGoose := stdlib.OpenDBFromPool(dbPool)
	provider, err := migrate.NewProvider(dbForGoose)
	if err != nil {
		dbForGoose.Close()
		dbPool.Close()
		t.Fatalf("migrate.NewProvider() error = %+v", err)
	}

	db := &DB{Pool: dbPool, SQL: dbForGoose, Provider: provider}
	db.GooseReset(t)
	t.Cleanup(func() { db.Cleanup(t) })

	return db
}

func (db *DB) GooseUp(t testing.TB) {
	t.Helper()
	if _, err := db.Provider.Up(context.Background()); err != nil {
		t.Fatalf("goose Up() error = %+v", err)
	}
}

func (db *DB) GooseReset(t testing.TB) {
	t.Helper()
	if _, err := db.Provider.DownTo(context.Background(), 0); err != nil {
		t.Fatalf("goose DownTo(0) error = %+v", err)
	}
}

func (db *DB) Cleanup(t testing.TB) {
	t.Helper()
	db.GooseReset(t)

	if err := db.SQL.Close(); err != nil {
		t.Errorf("db.Close() error = %+v", err)
	}
	db.Pool.Close()
}
