package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/plume/internal/chunker"
	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store and StructureStore using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     func() time.Time { return time.Now().UTC() },
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'draft',
		metadata    TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user_created ON memories(user_id, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_memories_user_status ON memories(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_memories_deleted ON memories(deleted_at);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		memory_id   TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_memory ON chunks(memory_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		text,
		content=chunks,
		content_rowid=rowid
	);

	CREATE TABLE IF NOT EXISTS book_structures (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		mode        TEXT NOT NULL,
		title       TEXT NOT NULL,
		subtitle    TEXT,
		chapters    TEXT NOT NULL DEFAULT '[]',
		total_pages INTEGER NOT NULL DEFAULT 0,
		rationale   TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_structures_user ON book_structures(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS active_structures (
		user_id      TEXT PRIMARY KEY,
		structure_id TEXT NOT NULL REFERENCES book_structures(id) ON DELETE CASCADE,
		activated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS generation_cache (
		key       TEXT PRIMARY KEY,
		hash      TEXT NOT NULL,
		payload   BLOB NOT NULL,
		stored_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}
	return nil
}

// persistErr tags storage failures for callers.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return plumeerr.Wrap(plumeerr.PersistenceFailed, fmt.Errorf("%s: %w", op, err))
}

func notFound(kind, id string) error {
	return plumeerr.Newf(plumeerr.NotFound, "%s not found: %s", kind, id)
}

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.Memory, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	status := p.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !model.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	now := s.now()
	created := now
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC()
	}
	id := p.ID
	if id == "" {
		id = s.newID()
	}

	metaJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, title, content, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.UserID, p.Title, p.Content, status, string(metaJSON),
		formatTime(created), formatTime(now))
	if err != nil {
		return nil, persistErr("insert memory", err)
	}

	n, err := s.writeChunks(ctx, tx, id, p.Title, p.Content)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit", err)
	}

	return &model.Memory{
		ID:         id,
		UserID:     p.UserID,
		Title:      p.Title,
		Content:    p.Content,
		Status:     status,
		Metadata:   p.Metadata,
		CreatedAt:  created,
		UpdatedAt:  now,
		ChunkCount: n,
	}, nil
}

// writeChunks replaces the search chunks of a memory.
func (s *SQLiteStore) writeChunks(ctx context.Context, tx *sql.Tx, memoryID, title, content string) (int, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE memory_id = ?`, memoryID); err != nil {
		return 0, persistErr("clear chunks", err)
	}
	text := content
	if title != "" {
		text = title + "\n\n" + content
	}
	chunks := chunker.Chunk(text, chunker.DefaultOptions())
	for i, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, memory_id, seq, text, start_line, end_line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), memoryID, i, c.Text, c.StartLine, c.EndLine)
		if err != nil {
			return 0, persistErr("insert chunk", err)
		}
	}
	return len(chunks), nil
}

func (s *SQLiteStore) Update(ctx context.Context, p UpdateParams) (*model.Memory, error) {
	if p.Status != nil && !model.ValidStatuses[*p.Status] {
		return nil, fmt.Errorf("invalid status %q", *p.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		p.ID, p.UserID)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("memory", p.ID)
	}
	if err != nil {
		return nil, persistErr("load memory", err)
	}

	rechunk := false
	if p.Title != nil && *p.Title != m.Title {
		m.Title = *p.Title
		rechunk = true
	}
	if p.Content != nil && *p.Content != m.Content {
		m.Content = *p.Content
		rechunk = true
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Metadata != nil {
		m.Metadata = *p.Metadata
	}
	m.UpdatedAt = s.now()

	metaJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE memories SET title = ?, content = ?, status = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		m.Title, m.Content, m.Status, string(metaJSON), formatTime(m.UpdatedAt), m.ID)
	if err != nil {
		return nil, persistErr("update memory", err)
	}

	if rechunk {
		if m.ChunkCount, err = s.writeChunks(ctx, tx, m.ID, m.Title, m.Content); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("commit", err)
	}
	return &m, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		id, userID)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("memory", id)
	}
	if err != nil {
		return nil, persistErr("get memory", err)
	}
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE memory_id = ?`, id).Scan(&m.ChunkCount)
	return &m, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	where := []string{"m.deleted_at IS NULL", "m.user_id = ?"}
	args := []interface{}{p.UserID}

	if p.Status != "" {
		where = append(where, "m.status = ?")
		args = append(args, p.Status)
	}
	for _, tag := range p.Tags {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(m.metadata, '$.tags') WHERE value = ?)")
		args = append(args, tag)
	}

	query := `SELECT ` + prefixed("m", memoryColumns) + `
		FROM memories m
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY m.created_at, m.id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list memories", err)
	}
	defer rows.Close()

	memories, err := collectMemories(rows)
	if err != nil {
		return nil, persistErr("list memories", err)
	}
	return memories, nil
}

// ListPublished returns every published memory of the user, oldest first.
func (s *SQLiteStore) ListPublished(ctx context.Context, userID string) ([]model.Memory, error) {
	return s.List(ctx, ListParams{UserID: userID, Status: model.StatusPublished})
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM memories WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		p.ID, p.UserID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("memory", p.ID)
	}
	if err != nil {
		return persistErr("find memory", err)
	}

	if p.Hard {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return persistErr("begin", err)
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE memory_id = ?`, id); err != nil {
			return persistErr("delete chunks", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
			return persistErr("delete memory", err)
		}
		return persistErr("commit", tx.Commit())
	}

	_, err = s.db.ExecContext(ctx, `UPDATE memories SET deleted_at = ? WHERE id = ?`, formatTime(s.now()), id)
	return persistErr("soft delete", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const memoryColumns = `id, user_id, title, content, status, metadata, created_at, updated_at, deleted_at`

func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var metaJSON, createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(
		&m.ID, &m.UserID, &m.Title, &m.Content, &m.Status, &metaJSON,
		&createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return m, err
	}

	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		m.DeletedAt = &t
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &m.Metadata); err != nil {
			return m, fmt.Errorf("decode metadata of %s: %w", m.ID, err)
		}
	}
	return m, nil
}

func collectMemories(rows *sql.Rows) ([]model.Memory, error) {
	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
