// Package store persists memories, book structures and the generation
// cache in SQLite.
package store

import (
	"context"
	"time"

	"github.com/rcliao/plume/internal/model"
)

// PutParams holds parameters for storing a memory.
type PutParams struct {
	UserID   string
	Title    string
	Content  string
	Status   string
	Metadata model.Metadata

	// ID and CreatedAt are only set when importing an export.
	ID        string
	CreatedAt time.Time
}

// UpdateParams holds a partial memory update. Nil fields are left as is.
type UpdateParams struct {
	UserID   string
	ID       string
	Title    *string
	Content  *string
	Status   *string
	Metadata *model.Metadata
}

// ListParams holds parameters for listing memories.
type ListParams struct {
	UserID string
	Status string
	Tags   []string
	Limit  int // 0 means no limit
}

// RmParams holds parameters for deleting a memory.
type RmParams struct {
	UserID string
	ID     string
	Hard   bool
}

// Store defines the memory storage interface.
type Store interface {
	// Put creates a memory. Returns the created memory.
	Put(ctx context.Context, p PutParams) (*model.Memory, error)

	// Update applies a partial update and returns the new state.
	Update(ctx context.Context, p UpdateParams) (*model.Memory, error)

	// Get retrieves a live memory by id.
	Get(ctx context.Context, userID, id string) (*model.Memory, error)

	// List lists memories oldest first.
	List(ctx context.Context, p ListParams) ([]model.Memory, error)

	// Rm soft-deletes (or hard-deletes) a memory.
	Rm(ctx context.Context, p RmParams) error

	// Close closes the store.
	Close() error
}

// StructureStore holds book structures and the per-user active pointer.
type StructureStore interface {
	// LoadActive returns the user's active structure, or nil when none is set.
	LoadActive(ctx context.Context, userID string) (*model.BookStructure, error)

	// Activate saves b and makes it the user's only active structure.
	Activate(ctx context.Context, userID string, b *model.BookStructure) (*model.BookStructure, error)

	// DeactivateAll clears the user's active structure.
	DeactivateAll(ctx context.Context, userID string) error
}
