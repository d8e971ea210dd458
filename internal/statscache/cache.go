// Package statscache persists per-sample colour statistics in SQLite so
// unchanged textures are not re-analysed on the next run.
package statscache

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-hclog"
	_ "modernc.org/sqlite"

	"github.com/jmylchreest/swatchpath/internal/colour"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache is a SQLite-backed cluster.StatsCache. It is safe for concurrent use.
type Cache struct {
	db     *sql.DB
	logger hclog.Logger
}

// DefaultPath returns the stats database path under XDG_CACHE_HOME.
func DefaultPath() (string, error) {
	path, err := xdg.CacheFile(filepath.Join("swatchpath", "stats.db"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve stats cache path: %w", err)
	}
	return path, nil
}

// Open opens or creates the cache at path and applies pending migrations.
func Open(path string, logger hclog.Logger) (*Cache, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to apply sqlite pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	logger.Debug("stats cache opened", "path", path)
	return &Cache{db: database, logger: logger}, nil
}

func migrate(database *sql.DB) error {
	if _, err := database.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := database.QueryRow(
			"SELECT COUNT(1) FROM schema_migrations WHERE name = ?", name,
		).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("failed to start migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)",
			name, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}
	}
	return nil
}

// Lookup returns cached statistics for key. Read errors count as a miss.
func (c *Cache) Lookup(key string) (colour.Stats, bool) {
	var raw string
	err := c.db.QueryRow("SELECT stats_json FROM sample_stats WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return colour.Stats{}, false
	}
	if err != nil {
		c.logger.Warn("stats cache read failed", "key", key, "error", err)
		return colour.Stats{}, false
	}

	var stats colour.Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		c.logger.Warn("discarding corrupt stats cache row", "key", key, "error", err)
		return colour.Stats{}, false
	}
	return stats, true
}

// Store saves statistics for key, replacing any previous value.
func (c *Cache) Store(key string, stats colour.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if _, err := c.db.Exec(
		`INSERT INTO sample_stats(key, stats_json, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET stats_json = excluded.stats_json, created_at = excluded.created_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to store stats: %w", err)
	}
	return nil
}

// Len returns the number of cached rows.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(1) FROM sample_stats").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stats: %w", err)
	}
	return n, nil
}

// Clear removes every cached row.
func (c *Cache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM sample_stats"); err != nil {
		return fmt.Errorf("failed to clear stats cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
