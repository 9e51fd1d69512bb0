package store

import (
	"context"
	"database/sql"
	"errors"
	"unicode/utf8"

	"github.com/rcliao/plume/internal/cache"
)

type sqliteCache struct {
	s *SQLiteStore
}

// Cache returns a cache.Cache persisted in the generation_cache table.
func (s *SQLiteStore) Cache() cache.Cache {
	return &sqliteCache{s: s}
}

func (c *sqliteCache) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	var e cache.Entry
	var storedAt string
	err := c.s.db.QueryRowContext(ctx,
		`SELECT hash, payload, stored_at FROM generation_cache WHERE key = ?`, key,
	).Scan(&e.Hash, &e.Payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, persistErr("cache get", err)
	}
	e.StoredAt = parseTime(storedAt)
	return e, true, nil
}

func (c *sqliteCache) Put(ctx context.Context, key string, e cache.Entry) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = c.s.now()
	}
	_, err := c.s.db.ExecContext(ctx, `
		INSERT INTO generation_cache (key, hash, payload, stored_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET hash = excluded.hash, payload = excluded.payload, stored_at = excluded.stored_at`,
		key, e.Hash, e.Payload, formatTime(e.StoredAt))
	return persistErr("cache put", err)
}

// Clear drops every entry of every user.
func (c *sqliteCache) Clear(ctx context.Context) error {
	_, err := c.s.db.ExecContext(ctx, `DELETE FROM generation_cache`)
	return persistErr("cache clear", err)
}

// ClearUserCache drops the cached structure drafts of one user and
// returns how many were removed. Other users' drafts are kept.
func (s *SQLiteStore) ClearUserCache(ctx context.Context, userID string) (int64, error) {
	prefix := cache.Key("structure", userID) + ":"
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generation_cache WHERE substr(key, 1, ?) = ?`, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return 0, persistErr("cache clear", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
