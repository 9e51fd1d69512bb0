package model

import (
	"fmt"
	"time"
)

// Mode selects how a book structure groups memories.
type Mode string

const (
	ModeChronological Mode = "chronological"
	ModeThematic      Mode = "thematic"
	ModeExpert        Mode = "expert"
)

// Modes lists the known generation modes in menu order.
var Modes = []Mode{ModeChronological, ModeThematic, ModeExpert}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeChronological, ModeThematic, ModeExpert:
		return true
	}
	return false
}

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (use chronological, thematic or expert)", s)
	}
	return m, nil
}

// Chapter is one entry of a book structure. It references memories by id.
type Chapter struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	MemoryIDs      []string `json:"memory_ids"`
	Order          int      `json:"order"`
	EstimatedPages int      `json:"estimated_pages"`
	Period         string   `json:"period,omitempty"`
	Theme          string   `json:"theme,omitempty"`
}

// Label returns the period or theme label, whichever is set.
func (c Chapter) Label() string {
	if c.Theme != "" {
		return c.Theme
	}
	return c.Period
}

// BookStructure groups a user's memories into an ordered list of chapters.
type BookStructure struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	Mode                Mode      `json:"mode"`
	Title               string    `json:"title"`
	Subtitle            string    `json:"subtitle,omitempty"`
	Chapters            []Chapter `json:"chapters"`
	TotalEstimatedPages int       `json:"total_estimated_pages"`
	Rationale           string    `json:"rationale,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	Active              bool      `json:"active,omitempty"`
}

// Recount sets TotalEstimatedPages to the sum of the chapter estimates.
func (b *BookStructure) Recount() {
	total := 0
	for _, c := range b.Chapters {
		total += c.EstimatedPages
	}
	b.TotalEstimatedPages = total
}

// ChapterIndex returns the index of the chapter with the given id, or -1.
func (b *BookStructure) ChapterIndex(id string) int {
	for i, c := range b.Chapters {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// AssembledChapter is the renderable form of a chapter once its memory
// references have been resolved.
type AssembledChapter struct {
	ChapterID   string    `json:"chapter_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Body        string    `json:"body"`
	Photos      []string  `json:"photos,omitempty"`
	Dates       []string  `json:"dates,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Sections    []Section `json:"sections"`
}

// Section is one resolved memory inside an assembled chapter.
type Section struct {
	MemoryID string   `json:"memory_id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Photos   []string `json:"photos,omitempty"`
	Dates    []string `json:"dates,omitempty"`
}
