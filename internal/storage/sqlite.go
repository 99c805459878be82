// Package storage provides SQLite-backed persistence for geocode results.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/opencitydata/crimepipe/internal/model"
)

// GeocodeCache stores geocode results keyed by normalized address query.
// The geocoding service is the slowest external dependency in the
// pipeline; cached addresses skip it entirely on repeat runs.
type GeocodeCache struct {
	db     *sql.DB
	dbPath string
}

// NewGeocodeCache opens (and if necessary creates) the cache database at
// dbPath.
func NewGeocodeCache(dbPath string) (*GeocodeCache, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	cache := &GeocodeCache{db: db, dbPath: dbPath}
	if err := cache.migrate(context.Background()); err != nil {
		return nil, err
	}
	return cache, nil
}

// Close closes the database connection.
func (c *GeocodeCache) Close() error {
	return c.db.Close()
}

func (c *GeocodeCache) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS geocode_results (
			query       TEXT PRIMARY KEY,
			x           REAL,
			y           REAL,
			score       REAL NOT NULL DEFAULT 0,
			tier        TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL DEFAULT '',
			resolved    INTEGER NOT NULL DEFAULT 0,
			cached_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate cache schema: %w", err)
	}
	return nil
}

// Get returns the cached result for a query, if any.
func (c *GeocodeCache) Get(ctx context.Context, query string) (model.GeocodeResult, bool, error) {
	var (
		res  model.GeocodeResult
		x, y sql.NullFloat64
	)

	row := c.db.QueryRowContext(ctx,
		`SELECT x, y, score, tier, address, resolved FROM geocode_results WHERE query = ?`, query)
	err := row.Scan(&x, &y, &res.Score, &res.Tier, &res.Address, &res.Resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GeocodeResult{}, false, nil
	}
	if err != nil {
		return model.GeocodeResult{}, false, fmt.Errorf("failed to read cached geocode: %w", err)
	}

	if x.Valid && y.Valid {
		res.X = &x.Float64
		res.Y = &y.Float64
	}
	return res, true, nil
}

// Put stores or replaces the result for a query.
func (c *GeocodeCache) Put(ctx context.Context, query string, result model.GeocodeResult) error {
	var x, y any
	if result.X != nil {
		x = *result.X
	}
	if result.Y != nil {
		y = *result.Y
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO geocode_results (query, x, y, score, tier, address, resolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		query, x, y, result.Score, result.Tier, result.Address, result.Resolved)
	if err != nil {
		return fmt.Errorf("failed to cache geocode result: %w", err)
	}
	return nil
}
