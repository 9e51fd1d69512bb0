package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rcliao/plume/internal/model"
)

// SearchParams holds parameters for searching memories.
type SearchParams struct {
	UserID string
	Query  string
	Status string
	Limit  int
}

// SearchResult wraps a memory with the chunk that matched, if any.
type SearchResult struct {
	model.Memory
	MatchChunk *model.Chunk `json:"match_chunk,omitempty"`
}

// ftsSafe matches queries that can be handed to FTS5 MATCH verbatim.
var ftsSafe = regexp.MustCompile(`^[\p{L}\p{N}\s]+$`)

// Search finds memories whose title, content or chunks contain the query.
// Plain word queries also go through the FTS5 index, which matches
// whole tokens anywhere in the memory.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	like := "%" + p.Query + "%"
	where := []string{"m.deleted_at IS NULL", "m.user_id = ?"}
	args := []interface{}{p.UserID}
	if p.Status != "" {
		where = append(where, "m.status = ?")
		args = append(args, p.Status)
	}

	match := "m.title LIKE ? OR m.content LIKE ? OR c.text LIKE ?"
	args = append(args, like, like, like)
	if q := strings.TrimSpace(p.Query); q != "" && ftsSafe.MatchString(q) {
		match += " OR c.rowid IN (SELECT rowid FROM chunks_fts WHERE chunks_fts MATCH ?)"
		args = append(args, q)
	}

	query := `
		SELECT ` + prefixed("m", memoryColumns) + `, c.id, c.seq, c.text, c.start_line, c.end_line
		FROM memories m
		LEFT JOIN chunks c ON c.memory_id = m.id
		WHERE ` + strings.Join(where, " AND ") + ` AND (` + match + `)
		ORDER BY m.created_at, m.id, c.seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("search", err)
	}
	defer rows.Close()

	var results []SearchResult
	index := map[string]int{}
	needle := strings.ToLower(p.Query)
	for rows.Next() {
		var m model.Memory
		var metaJSON, createdAt, updatedAt string
		var deletedAt, chunkID, chunkText sql.NullString
		var seq, startLine, endLine sql.NullInt64
		err := rows.Scan(
			&m.ID, &m.UserID, &m.Title, &m.Content, &m.Status, &metaJSON,
			&createdAt, &updatedAt, &deletedAt,
			&chunkID, &seq, &chunkText, &startLine, &endLine,
		)
		if err != nil {
			return nil, persistErr("search", err)
		}

		var match *model.Chunk
		if chunkID.Valid && strings.Contains(strings.ToLower(chunkText.String), needle) {
			match = &model.Chunk{
				ID:        chunkID.String,
				MemoryID:  m.ID,
				Seq:       int(seq.Int64),
				Text:      chunkText.String,
				StartLine: int(startLine.Int64),
				EndLine:   int(endLine.Int64),
			}
		}

		if i, ok := index[m.ID]; ok {
			if results[i].MatchChunk == nil {
				results[i].MatchChunk = match
			}
			continue
		}
		if len(results) >= limit {
			continue
		}
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		json.Unmarshal([]byte(metaJSON), &m.Metadata)

		index[m.ID] = len(results)
		results = append(results, SearchResult{Memory: m, MatchChunk: match})
	}
	return results, rows.Err()
}
