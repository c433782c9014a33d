// Package cache provides a SQLite-backed page cache keyed by URL and video ID.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ertflix-extract/pkg/interfaces"
	"ertflix-extract/pkg/logging"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	url        TEXT NOT NULL,
	video_id   TEXT NOT NULL,
	body       TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (url, video_id)
)`

// PageCache stores downloaded HTML pages for a limited time.
type PageCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log *logging.Logger
}

// Open opens (or creates) the cache database at path.
func Open(path string, ttl time.Duration, log *logging.Logger) (*PageCache, error) {
	if path == "" {
		return nil, errors.New("cache: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("cache: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	// SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}

	return &PageCache{
		db:  db,
		ttl: ttl,
		now: time.Now,
		log: log.WithComponent("page-cache"),
	}, nil
}

// Get returns the cached page if present and not expired.
func (c *PageCache) Get(ctx context.Context, url, videoID string) (string, bool, error) {
	var body string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM pages WHERE url = ? AND video_id = ?`,
		url, videoID,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get: %w", err)
	}

	if c.ttl > 0 && c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		c.log.Debug("cache entry expired", "url", url, "video_id", videoID)
		return "", false, nil
	}
	return body, true, nil
}

// Put stores or replaces a page.
func (c *PageCache) Put(ctx context.Context, url, videoID, body string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO pages (url, video_id, body, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url, video_id) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, videoID, body, c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Purge deletes entries older than the TTL and returns how many were removed.
func (c *PageCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM pages WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *PageCache) Close() error {
	return c.db.Close()
}

var _ interfaces.PageCache = (*PageCache)(nil)
