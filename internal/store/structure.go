package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
)

const structureColumns = `b.id, b.user_id, b.mode, b.title, b.subtitle, b.chapters, b.total_pages, b.rationale, b.created_at`

// LoadActive returns the user's active structure, or nil when none is set.
func (s *SQLiteStore) LoadActive(ctx context.Context, userID string) (*model.BookStructure, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+structureColumns+`
		FROM active_structures a
		JOIN book_structures b ON b.id = a.structure_id
		WHERE a.user_id = ?`, userID)
	b, err := scanStructure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("load active structure", err)
	}
	b.Active = true
	return b, nil
}

// Activate saves b under userID and points the user's active slot at it.
// Both writes happen in one transaction; the slot is keyed by user, so a
// user can never have more than one active structure. The returned copy
// carries the assigned ID and creation time.
func (s *SQLiteStore) Activate(ctx context.Context, userID string, b *model.BookStructure) (*model.BookStructure, error) {
	if b == nil {
		return nil, fmt.Errorf("activate: nil structure")
	}
	if !b.Mode.Valid() {
		return nil, plumeerr.Newf(plumeerr.UnknownMode, "mode %q", b.Mode)
	}

	out := *b
	out.UserID = userID
	out.Chapters = append([]model.Chapter(nil), b.Chapters...)
	for i := range out.Chapters {
		if out.Chapters[i].MemoryIDs == nil {
			out.Chapters[i].MemoryIDs = []string{}
		}
	}
	out.Recount()

	now := s.now()
	if out.ID == "" {
		out.ID = s.newID()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}

	if out.Chapters == nil {
		out.Chapters = []model.Chapter{}
	}
	chJSON, err := json.Marshal(out.Chapters)
	if err != nil {
		return nil, fmt.Errorf("encode chapters: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO book_structures (id, user_id, mode, title, subtitle, chapters, total_pages, rationale, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			title = excluded.title,
			subtitle = excluded.subtitle,
			chapters = excluded.chapters,
			total_pages = excluded.total_pages,
			rationale = excluded.rationale,
			updated_at = excluded.updated_at
		WHERE book_structures.user_id = excluded.user_id`,
		out.ID, userID, string(out.Mode), out.Title, nullable(out.Subtitle), string(chJSON),
		out.TotalEstimatedPages, nullable(out.Rationale), formatTime(out.CreatedAt), formatTime(now))
	if err != nil {
		return nil, persistErr("save structure", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFound("structure", out.ID)
	}

	if err := setActive(ctx, tx, userID, out.ID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit", err)
	}

	out.Active = true
	return &out, nil
}

// ActivateByID re-activates a structure from the user's history.
func (s *SQLiteStore) ActivateByID(ctx context.Context, userID, id string) (*model.BookStructure, error) {
	b, err := s.GetStructure(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	defer tx.Rollback()
	if err := setActive(ctx, tx, userID, id, s.now()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit", err)
	}
	b.Active = true
	return b, nil
}

func setActive(ctx context.Context, tx *sql.Tx, userID, structureID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO active_structures (user_id, structure_id, activated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			structure_id = excluded.structure_id,
			activated_at = excluded.activated_at`,
		userID, structureID, formatTime(at))
	return persistErr("set active structure", err)
}

// DeactivateAll clears the user's active structure. History is kept.
func (s *SQLiteStore) DeactivateAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_structures WHERE user_id = ?`, userID)
	return persistErr("deactivate structures", err)
}

// GetStructure loads one structure of the user by id.
func (s *SQLiteStore) GetStructure(ctx context.Context, userID, id string) (*model.BookStructure, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+structureColumns+`, (a.user_id IS NOT NULL)
		FROM book_structures b
		LEFT JOIN active_structures a ON a.structure_id = b.id
		WHERE b.id = ? AND b.user_id = ?`, id, userID)
	var active bool
	b, err := scanStructure(row, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("structure", id)
	}
	if err != nil {
		return nil, persistErr("get structure", err)
	}
	b.Active = active
	return b, nil
}

// ListStructures returns the user's saved structures, newest first.
func (s *SQLiteStore) ListStructures(ctx context.Context, userID string) ([]model.BookStructure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+structureColumns+`, (a.user_id IS NOT NULL)
		FROM book_structures b
		LEFT JOIN active_structures a ON a.structure_id = b.id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, persistErr("list structures", err)
	}
	defer rows.Close()

	var out []model.BookStructure
	for rows.Next() {
		var active bool
		b, err := scanStructure(rows, &active)
		if err != nil {
			return nil, persistErr("list structures", err)
		}
		b.Active = active
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanStructure(row scanner, extra ...interface{}) (*model.BookStructure, error) {
	var b model.BookStructure
	var mode, chJSON, createdAt string
	var subtitle, rationale sql.NullString

	dest := []interface{}{
		&b.ID, &b.UserID, &mode, &b.Title, &subtitle, &chJSON,
		&b.TotalEstimatedPages, &rationale, &createdAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	b.Mode = model.Mode(mode)
	b.Subtitle = subtitle.String
	b.Rationale = rationale.String
	b.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(chJSON), &b.Chapters); err != nil {
		return nil, fmt.Errorf("decode chapters of %s: %w", b.ID, err)
	}
	if b.Chapters == nil {
		b.Chapters = []model.Chapter{}
	}
	return &b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
