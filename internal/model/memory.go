// Package model defines the core PLUME data types.
package model

import "time"

// Memory statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// ValidStatuses are the allowed memory statuses.
var ValidStatuses = map[string]bool{
	StatusDraft:     true,
	StatusPublished: true,
}

// Memory is a single autobiographical record written by a user.
type Memory struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Status     string     `json:"status"`
	Metadata   Metadata   `json:"metadata"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	ChunkCount int        `json:"chunks,omitempty"`
}

// Metadata is the optional bag attached to a memory.
type Metadata struct {
	Dates      []string `json:"dates,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Photos     []string `json:"photos,omitempty"`
}

// Published reports whether the memory can be used in a book.
func (m Memory) Published() bool { return m.Status == StatusPublished }

// Chunk represents an internal text chunk of a memory.
type Chunk struct {
	ID        string `json:"id"`
	MemoryID  string `json:"memory_id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Profile is the user context used to enrich generation prompts.
type Profile struct {
	FirstName string `json:"first_name,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}
