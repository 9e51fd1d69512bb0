package cache

import (
	"context"
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"60s", 60 * time.Second, false},
		{"", 0, true},
		{"abc", 0, true},
		{"7x", 0, true},
		{"-1h", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTTL(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("ParseTTL(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTTL(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTTL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEntryFresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{StoredAt: now.Add(-59 * time.Minute)}
	if !e.Fresh(time.Hour, now) {
		t.Error("59 minute old entry should be fresh under 1h")
	}
	e.StoredAt = now.Add(-time.Hour)
	if e.Fresh(time.Hour, now) {
		t.Error("entry exactly ttl old should be stale")
	}
	if !e.Fresh(0, now) {
		t.Error("zero ttl never expires")
	}
}

func TestHashStable(t *testing.T) {
	a, _ := Hash([]string{"x", "y"}, 3)
	b, _ := Hash([]string{"x", "y"}, 3)
	c, _ := Hash([]string{"y", "x"}, 3)
	if a != b {
		t.Error("hash should be deterministic")
	}
	if a == c {
		t.Error("order should change the hash")
	}
	if Key("structure", "u1", "thematic") != "structure:u1:thematic" {
		t.Error("unexpected key format")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(16)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(m.Close)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	m.Put(ctx, "k", Entry{Hash: "h", Payload: []byte("p")})
	e, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if e.Hash != "h" || string(e.Payload) != "p" {
		t.Errorf("unexpected entry %+v", e)
	}

	m.Clear(ctx)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected miss after clear")
	}
}

type mapCache map[string]Entry

func (m mapCache) Get(_ context.Context, k string) (Entry, bool, error) {
	e, ok := m[k]
	return e, ok, nil
}
func (m mapCache) Put(_ context.Context, k string, e Entry) error { m[k] = e; return nil }
func (m mapCache) Clear(_ context.Context) error {
	for k := range m {
		delete(m, k)
	}
	return nil
}

func TestLayeredPromotesBackHits(t *testing.T) {
	ctx := context.Background()
	front, back := mapCache{}, mapCache{}
	back["k"] = Entry{Hash: "from-back"}

	l := Layered(front, back)
	e, ok, err := l.Get(ctx, "k")
	if err != nil || !ok || e.Hash != "from-back" {
		t.Fatalf("expected back hit, got %+v ok=%v err=%v", e, ok, err)
	}
	if _, ok := front["k"]; !ok {
		t.Error("expected back hit copied into front")
	}

	l.Put(ctx, "n", Entry{Hash: "new"})
	if front["n"].Hash != "new" || back["n"].Hash != "new" {
		t.Error("expected put to write both layers")
	}

	l.Clear(ctx)
	if len(front) != 0 || len(back) != 0 {
		t.Error("expected clear on both layers")
	}
}
