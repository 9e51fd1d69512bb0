// Package manuscript resolves a book structure against a user's memories
// into renderable chapters. Everything here is pure: the same inputs
// always give the same output.
package manuscript

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/plume/internal/model"
)

// Separator is placed between memory bodies inside one chapter.
const Separator = "\n\n***\n\n"

// DefaultTitle is used when neither a structure nor a theme names the book.
const DefaultTitle = "Mémoires"

// View selects how the manuscript is chaptered. A non-empty Theme
// replaces the structure with a filtered, one-memory-per-chapter view.
type View struct {
	Theme string
}

// Manuscript is a book ready for the reader or the exporter.
type Manuscript struct {
	Title    string                   `json:"title"`
	Subtitle string                   `json:"subtitle,omitempty"`
	Chapters []model.AssembledChapter `json:"chapters"`
}

// Assemble resolves the structure's chapters against memories. Chapters
// follow Order; memories follow each chapter's id list. Unknown ids are
// skipped and chapters that resolve to nothing are left out. With no
// structure, or nothing resolved, every memory becomes its own chapter,
// oldest first.
func Assemble(b *model.BookStructure, memories []model.Memory) []model.AssembledChapter {
	if b != nil {
		if out := assembleStructure(b, memories); len(out) > 0 {
			return out
		}
	}
	return perMemory(memories)
}

func assembleStructure(b *model.BookStructure, memories []model.Memory) []model.AssembledChapter {
	byID := make(map[string]model.Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = m
	}

	chapters := append([]model.Chapter(nil), b.Chapters...)
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Order < chapters[j].Order })

	var out []model.AssembledChapter
	for _, c := range chapters {
		var resolved []model.Memory
		for _, id := range c.MemoryIDs {
			if m, ok := byID[id]; ok {
				resolved = append(resolved, m)
			}
		}
		if len(resolved) == 0 {
			continue
		}

		ac := model.AssembledChapter{
			ChapterID:   c.ID,
			Title:       c.Title,
			Description: c.Description,
			Sections:    make([]model.Section, 0, len(resolved)),
		}
		bodies := make([]string, 0, len(resolved))
		for _, m := range resolved {
			bodies = append(bodies, m.Content)
			ac.Photos = union(ac.Photos, m.Metadata.Photos)
			ac.Dates = union(ac.Dates, m.Metadata.Dates)
			ac.Sections = append(ac.Sections, section(m))
		}
		ac.Body = strings.Join(bodies, Separator)
		for _, label := range []string{c.Theme, c.Period} {
			if label != "" {
				ac.Tags = append(ac.Tags, label)
			}
		}
		out = append(out, ac)
	}
	return out
}

func perMemory(memories []model.Memory) []model.AssembledChapter {
	sorted := append([]model.Memory(nil), memories...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	out := make([]model.AssembledChapter, 0, len(sorted))
	for _, m := range sorted {
		out = append(out, model.AssembledChapter{
			ChapterID: m.ID,
			Title:     m.Title,
			Body:      m.Content,
			Photos:    union(nil, m.Metadata.Photos),
			Dates:     union(nil, m.Metadata.Dates),
			Tags:      union(nil, m.Metadata.Tags),
			Sections:  []model.Section{section(m)},
		})
	}
	return out
}

func section(m model.Memory) model.Section {
	return model.Section{
		MemoryID: m.ID,
		Title:    m.Title,
		Body:     m.Content,
		Photos:   union(nil, m.Metadata.Photos),
		Dates:    union(nil, m.Metadata.Dates),
	}
}

// union appends the values of add missing from dst, keeping first-seen order.
func union(dst, add []string) []string {
	for _, v := range add {
		if v == "" || contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Build produces the manuscript for a view. A theme filter bypasses the
// structure entirely.
func Build(b *model.BookStructure, memories []model.Memory, v View) Manuscript {
	theme := strings.TrimSpace(v.Theme)

	ms := Manuscript{Title: DefaultTitle}
	switch {
	case b != nil && b.Title != "":
		ms.Title = b.Title
	case theme != "":
		ms.Title = capitalize(theme)
	}
	if b != nil {
		ms.Subtitle = b.Subtitle
	}

	if theme != "" {
		ms.Chapters = perMemory(FilterByTheme(memories, theme))
		return ms
	}
	ms.Chapters = Assemble(b, memories)
	return ms
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
