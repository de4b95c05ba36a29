// Package migrate applies and inspects the embedded goose migrations.
//
// Only cmd/migrate changes the schema. The server uses Inspect, which never
// writes, to decide whether it may start.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/samber/lo"

	"github.com/voyas/api/internal/database"
	"github.com/voyas/api/sql/schema"
)

// VersionTable is goose's bookkeeping table.
const VersionTable = "goose_db_version"

// NewProvider returns a goose provider over the embedded schema migrations.
func NewProvider(db *sql.DB, opts ...goose.ProviderOption) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, schema.FS, opts...)
	if err != nil {
		return nil, fmt.Errorf("migrate: new provider: %w", err)
	}
	return p, nil
}

// State compares the database with the embedded migrations.
type State struct {
	Applied int64
	Latest  int64
}

// Pending reports whether migrations remain to be applied.
func (s State) Pending() bool {
	return s.Applied < s.Latest
}

// Inspect reads the applied version without creating or altering any table.
func Inspect(ctx context.Context, db database.DBTX, p *goose.Provider) (State, error) {
	state := State{Latest: LatestVersion(p)}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, VersionTable).Scan(&exists); err != nil {
		return State{}, fmt.Errorf("migrate: look up %s: %w", VersionTable, err)
	}
	if !exists {
		return state, nil
	}

	rows, err := db.Query(ctx, `SELECT version_id, is_applied FROM `+VersionTable+` ORDER BY id DESC`)
	if err != nil {
		return State{}, fmt.Errorf("migrate: read %s: %w", VersionTable, err)
	}
	defer rows.Close()

	// The newest row per version decides whether it is applied.
	seen := make(map[int64]bool)
	for rows.Next() {
		var (
			version int64
			applied bool
		)
		if err := rows.Scan(&version, &applied); err != nil {
			return State{}, fmt.Errorf("migrate: scan %s: %w", VersionTable, err)
		}
		if seen[version] {
			continue
		}
		seen[version] = true
		if applied && version > state.Applied {
			state.Applied = version
		}
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("migrate: read %s: %w", VersionTable, err)
	}

	return state, nil
}

// LatestVersion is the highest embedded migration version.
func LatestVersion(p *goose.Provider) int64 {
	return lo.Reduce(p.ListSources(), func(acc int64, s *goose.Source, _ int) int64 {
		return max(acc, s.Version)
	}, 0)
}
