package store

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
)

// Stats holds database statistics.
type Stats struct {
	DBPath             string `json:"db_path"`
	DBSizeBytes        int64  `json:"db_size_bytes"`
	DBSize             string `json:"db_size"`
	TotalMemories      int    `json:"total_memories"`
	PublishedMemories  int    `json:"published_memories"`
	DraftMemories      int    `json:"draft_memories"`
	DeletedMemories    int    `json:"deleted_memories"`
	TotalChunks        int    `json:"total_chunks"`
	Structures         int    `json:"structures"`
	ActiveStructure    string `json:"active_structure,omitempty"`
	CacheEntries       int    `json:"cache_entries"`
	LastMemoryAt       string `json:"last_memory_at,omitempty"`
	LastMemoryRelative string `json:"last_memory,omitempty"`
}

// Stats returns database statistics for one user.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath, userID string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}
	st.DBSize = humanize.Bytes(uint64(st.DBSizeBytes))

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(deleted_at IS NULL AND status = 'published'), 0),
		       COALESCE(SUM(deleted_at IS NULL AND status = 'draft'), 0),
		       COALESCE(SUM(deleted_at IS NOT NULL), 0)
		FROM memories WHERE user_id = ?`, userID,
	).Scan(&st.TotalMemories, &st.PublishedMemories, &st.DraftMemories, &st.DeletedMemories)
	if err != nil {
		return st, persistErr("stats", err)
	}

	s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c JOIN memories m ON m.id = c.memory_id WHERE m.user_id = ?`,
		userID).Scan(&st.TotalChunks)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_structures WHERE user_id = ?`, userID).Scan(&st.Structures)
	s.db.QueryRowContext(ctx, `SELECT structure_id FROM active_structures WHERE user_id = ?`, userID).Scan(&st.ActiveStructure)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_cache`).Scan(&st.CacheEntries)

	var last string
	s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(created_at), '') FROM memories WHERE user_id = ? AND deleted_at IS NULL`,
		userID).Scan(&last)
	if last != "" {
		t := parseTime(last)
		st.LastMemoryAt = last
		st.LastMemoryRelative = humanize.Time(t)
	}

	return st, nil
}
