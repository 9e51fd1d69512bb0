// Package book edits book structures in place: chapters can be added,
// renamed, removed and reordered, and memories moved between them.
//
// Chapters are put in Order before any edit, and every mutation leaves
// them numbered 1..n in slice order with the page total recounted.
package book

import (
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
)

const (
	newChapterTitle    = "Nouveau Chapitre"
	defaultTitle       = "Chapitre 1"
	defaultDescription = "Premiers souvenirs"
)

// Default is the structure shown when a user has no active one.
func Default(userID string) *model.BookStructure {
	return &model.BookStructure{
		UserID: userID,
		Mode:   model.ModeChronological,
		Title:  "Mon Histoire",
		Chapters: []model.Chapter{{
			ID:          "chapter-1",
			Title:       defaultTitle,
			Description: defaultDescription,
			MemoryIDs:   []string{},
			Order:       1,
		}},
	}
}

// AddChapter appends an empty chapter and returns it.
func AddChapter(b *model.BookStructure, title string) model.Chapter {
	title = strings.TrimSpace(title)
	if title == "" {
		title = newChapterTitle
	}
	sortChapters(b)
	ch := model.Chapter{
		ID:        "chapter-" + strings.ToLower(ulid.Make().String()),
		Title:     title,
		MemoryIDs: []string{},
	}
	b.Chapters = append(b.Chapters, ch)
	normalize(b)
	return b.Chapters[len(b.Chapters)-1]
}

// RemoveChapter deletes the chapter. Its memories become unassigned
// unless another chapter references them.
func RemoveChapter(b *model.BookStructure, chapterID string) error {
	i, err := find(b, chapterID)
	if err != nil {
		return err
	}
	b.Chapters = append(b.Chapters[:i], b.Chapters[i+1:]...)
	normalize(b)
	return nil
}

// RenameChapter sets the title and, when non-nil, the description.
func RenameChapter(b *model.BookStructure, chapterID, title string, description *string) error {
	i, err := find(b, chapterID)
	if err != nil {
		return err
	}
	if t := strings.TrimSpace(title); t != "" {
		b.Chapters[i].Title = t
	}
	if description != nil {
		b.Chapters[i].Description = strings.TrimSpace(*description)
	}
	normalize(b)
	return nil
}

// MoveChapter moves the chapter to position to (0-based, clamped).
func MoveChapter(b *model.BookStructure, chapterID string, to int) error {
	i, err := find(b, chapterID)
	if err != nil {
		return err
	}
	to = clamp(to, 0, len(b.Chapters)-1)
	ch := b.Chapters[i]
	rest := append(b.Chapters[:i:i], b.Chapters[i+1:]...)
	out := make([]model.Chapter, 0, len(b.Chapters))
	out = append(out, rest[:to]...)
	out = append(out, ch)
	out = append(out, rest[to:]...)
	b.Chapters = out
	normalize(b)
	return nil
}

// AssignMemory inserts memoryID into the chapter at pos (clamped; a
// negative pos appends). If the chapter already holds the memory it is
// moved to pos instead. Other chapters are left as they are.
func AssignMemory(b *model.BookStructure, chapterID, memoryID string, pos int) error {
	i, err := find(b, chapterID)
	if err != nil {
		return err
	}
	ids := without(b.Chapters[i].MemoryIDs, memoryID)
	if pos < 0 || pos > len(ids) {
		pos = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:pos]...)
	out = append(out, memoryID)
	out = append(out, ids[pos:]...)
	b.Chapters[i].MemoryIDs = out
	normalize(b)
	return nil
}

// UnassignMemory removes memoryID from the chapter.
func UnassignMemory(b *model.BookStructure, chapterID, memoryID string) error {
	i, err := find(b, chapterID)
	if err != nil {
		return err
	}
	ids := b.Chapters[i].MemoryIDs
	out := without(ids, memoryID)
	if len(out) == len(ids) {
		return plumeerr.Newf(plumeerr.NotFound, "memory %s not in chapter %s", memoryID, chapterID)
	}
	b.Chapters[i].MemoryIDs = out
	normalize(b)
	return nil
}

// Unassigned returns the published memories no chapter references, in
// their original order. A nil structure leaves every memory unassigned.
func Unassigned(b *model.BookStructure, memories []model.Memory) []model.Memory {
	used := map[string]bool{}
	if b != nil {
		for _, c := range b.Chapters {
			for _, id := range c.MemoryIDs {
				used[id] = true
			}
		}
	}
	var out []model.Memory
	for _, m := range memories {
		if m.Published() && !used[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

func find(b *model.BookStructure, chapterID string) (int, error) {
	if b == nil {
		return -1, plumeerr.Newf(plumeerr.NotFound, "chapter %s", chapterID)
	}
	sortChapters(b)
	i := b.ChapterIndex(chapterID)
	if i < 0 {
		return -1, plumeerr.Newf(plumeerr.NotFound, "chapter %s", chapterID)
	}
	return i, nil
}

// sortChapters puts the slice in reading order so positional edits match
// what the assembler shows.
func sortChapters(b *model.BookStructure) {
	sort.SliceStable(b.Chapters, func(i, j int) bool { return b.Chapters[i].Order < b.Chapters[j].Order })
}

func normalize(b *model.BookStructure) {
	for i := range b.Chapters {
		b.Chapters[i].Order = i + 1
		if b.Chapters[i].MemoryIDs == nil {
			b.Chapters[i].MemoryIDs = []string{}
		}
	}
	b.Recount()
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
