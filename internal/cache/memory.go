package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is a bounded in-process cache.
type Memory struct {
	c *ristretto.Cache[string, Entry]
}

// NewMemory returns a cache holding at most maxEntries entries.
func NewMemory(maxEntries int64) (*Memory, error) {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, Entry]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("new memory cache: %w", err)
	}
	return &Memory{c: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.c.Get(key)
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, e Entry) error {
	m.c.Set(key, e, 1)
	m.c.Wait()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.c.Clear()
	return nil
}

// Close releases the cache's background goroutines.
func (m *Memory) Close() {
	m.c.Close()
}
