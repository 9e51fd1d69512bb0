// Package architect drafts book structures from a user's published
// memories by delegating the grouping to a text-generation model.
package architect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/plume/internal/cache"
	"github.com/rcliao/plume/internal/llm"
	"github.com/rcliao/plume/internal/logger"
	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
)

// MemoryLister loads a user's published memories, oldest first.
type MemoryLister interface {
	ListPublished(ctx context.Context, userID string) ([]model.Memory, error)
}

// Service generates book structures.
type Service struct {
	Memories MemoryLister
	LLM      llm.Client  // nil means generation is unavailable
	Cache    cache.Cache // optional
	TTL      time.Duration
	Budget   int // prompt budget in bytes, 0 for DefaultPromptBudget
	Log      *logger.Logger
	Now      func() time.Time
}

// Options tune a single generation.
type Options struct {
	Profile model.Profile
	Fresh   bool // skip the cache lookup
}

func (s *Service) log() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// Generate drafts a structure for the user in the given mode. The result
// is not persisted.
func (s *Service) Generate(ctx context.Context, userID, mode string, opts Options) (*model.BookStructure, error) {
	m, err := model.ParseMode(mode)
	if err != nil {
		return nil, plumeerr.New(plumeerr.UnknownMode, err)
	}

	memories, err := s.Memories.ListPublished(ctx, userID)
	if err != nil {
		return nil, plumeerr.Wrap(plumeerr.PersistenceFailed, fmt.Errorf("load memories: %w", err))
	}
	if len(memories) == 0 {
		return nil, plumeerr.Newf(plumeerr.NoMemoriesAvailable, "no published memories for user %s", userID)
	}

	log := s.log().With("user", userID, "mode", string(m))
	key := cache.Key("structure", userID, string(m))
	hash, err := cache.Hash(string(m), memories, opts.Profile)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil && !opts.Fresh {
		if b, ok := s.cached(ctx, key, hash); ok {
			log.Debug("structure cache hit", "key", key)
			b.UserID = userID
			return b, nil
		}
		log.Debug("structure cache miss", "key", key)
	}

	if s.LLM == nil {
		return nil, plumeerr.New(plumeerr.GenerationFailed, llm.ErrNotConfigured)
	}

	req, omitted, err := Draft(memories, m, opts.Profile, s.Budget)
	if err != nil {
		return nil, plumeerr.New(plumeerr.GenerationFailed, err)
	}
	if omitted > 0 {
		log.Warn("prompt budget exceeded, newest memories left out", "omitted", omitted)
	}

	start := time.Now()
	raw, err := s.LLM.GenerateJSON(ctx, req)
	if err != nil {
		return nil, plumeerr.New(plumeerr.GenerationFailed, err)
	}
	log.Info("structure generated", "model", s.LLM.Name(), "duration", time.Since(start).String())

	known := make(map[string]bool, len(memories))
	for _, mem := range memories {
		known[mem.ID] = true
	}
	parsed, err := ParseStructure(raw, m, known)
	if err != nil {
		return nil, plumeerr.New(plumeerr.GenerationFailed, err)
	}
	if len(parsed.DroppedIDs) > 0 {
		log.Warn("model referenced unknown memories", "ids", parsed.DroppedIDs)
	}

	b := parsed.Structure
	b.UserID = userID
	b.CreatedAt = s.now()

	if s.Cache != nil {
		if payload, err := json.Marshal(b); err == nil {
			if err := s.Cache.Put(ctx, key, cache.Entry{Hash: hash, Payload: payload, StoredAt: s.now()}); err != nil {
				log.Warn("cache structure", "error", err)
			}
		}
	}
	return b, nil
}

func (s *Service) cached(ctx context.Context, key, hash string) (*model.BookStructure, bool) {
	e, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.log().Warn("read structure cache", "error", err)
		return nil, false
	}
	if !ok || e.Hash != hash || !e.Fresh(s.TTL, s.now()) {
		return nil, false
	}
	var b model.BookStructure
	if err := json.Unmarshal(e.Payload, &b); err != nil {
		return nil, false
	}
	return &b, true
}
