// Package cache provides the generation cache abstraction. Entries carry
// the hash of the inputs they were computed from and the time they were
// stored; freshness is decided by the caller.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is a cached payload.
type Entry struct {
	Hash     string    `json:"hash"`
	Payload  []byte    `json:"payload"`
	StoredAt time.Time `json:"stored_at"`
}

// Fresh reports whether the entry is younger than ttl at now.
// A non-positive ttl means entries never expire.
func (e Entry) Fresh(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(e.StoredAt) < ttl
}

// Cache stores entries by key.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	Clear(ctx context.Context) error
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Hash returns the hex SHA-256 of the JSON encoding of vs.
func Hash(vs ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, v := range vs {
		if err := enc.Encode(v); err != nil {
			return "", fmt.Errorf("hash: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var ttlRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseTTL parses a TTL string like "7d", "24h", "30m" into a time.Duration.
func ParseTTL(s string) (time.Duration, error) {
	m := ttlRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid ttl %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}

type layered struct {
	front, back Cache
}

// Layered reads front first and falls back to back, copying back hits
// into front. Writes and clears go to both.
func Layered(front, back Cache) Cache {
	return &layered{front: front, back: back}
}

func (l *layered) Get(ctx context.Context, key string) (Entry, bool, error) {
	if e, ok, err := l.front.Get(ctx, key); err == nil && ok {
		return e, true, nil
	}
	e, ok, err := l.back.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	_ = l.front.Put(ctx, key, e)
	return e, true, nil
}

func (l *layered) Put(ctx context.Context, key string, e Entry) error {
	if err := l.front.Put(ctx, key, e); err != nil {
		return err
	}
	return l.back.Put(ctx, key, e)
}

func (l *layered) Clear(ctx context.Context) error {
	if err := l.front.Clear(ctx); err != nil {
		return err
	}
	return l.back.Clear(ctx)
}
