package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ResponseCache keeps upstream response bodies in the http_responses table.
// It satisfies cache.Cache.
type ResponseCache struct {
	db  *Database
	now func() time.Time
}

// NewResponseCache creates a cache over db. Migrations must have run.
func NewResponseCache(db *Database) *ResponseCache {
	return &ResponseCache{db: db, now: time.Now}
}

// Get returns the body stored for url if it has not expired.
func (c *ResponseCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	err := c.db.conn.QueryRowContext(ctx,
		`SELECT body FROM http_responses WHERE url = $1 AND expires_at > $2`,
		url, c.now()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached response: %w", err)
	}
	return body, true, nil
}

// Set stores body for url, replacing any earlier entry.
func (c *ResponseCache) Set(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	now := c.now()
	_, err := c.db.conn.ExecContext(ctx, `
		INSERT INTO http_responses (url, body, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE
		SET body = EXCLUDED.body, fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
		url, body, now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("writing cached response: %w", err)
	}
	return nil
}

// Purge deletes expired entries, or every entry when all is set, and
// reports how many rows went.
func (c *ResponseCache) Purge(ctx context.Context, all bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if all {
		res, err = c.db.conn.ExecContext(ctx, `DELETE FROM http_responses`)
	} else {
		res, err = c.db.conn.ExecContext(ctx, `DELETE FROM http_responses WHERE expires_at <= $1`, c.now())
	}
	if err != nil {
		return 0, fmt.Errorf("purging cached responses: %w", err)
	}
	return res.RowsAffected()
}
