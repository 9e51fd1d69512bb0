package store

import (
	"context"

	"github.com/rcliao/plume/internal/model"
)

// ExportAll returns all live memories of the user, oldest first.
func (s *SQLiteStore) ExportAll(ctx context.Context, userID string) ([]model.Memory, error) {
	return s.List(ctx, ListParams{UserID: userID})
}

// Import stores memories from an export under userID, keeping their ids
// and creation times so existing structures still resolve. Memories whose
// id already exists are skipped. Returns the number imported.
func (s *SQLiteStore) Import(ctx context.Context, userID string, memories []model.Memory) (int, error) {
	imported := 0
	for _, m := range memories {
		if m.ID != "" {
			var exists int
			s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE id = ?`, m.ID).Scan(&exists)
			if exists > 0 {
				continue
			}
		}
		_, err := s.Put(ctx, PutParams{
			UserID:    userID,
			ID:        m.ID,
			Title:     m.Title,
			Content:   m.Content,
			Status:    m.Status,
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
