package architect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rcliao/plume/internal/model"
)

// DefaultChapterPages is used when the model omits a chapter estimate.
const DefaultChapterPages = 10

// ParseError describes a model response that does not have the
// book-structure shape.
type ParseError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "unparsable structure: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parsed is a validated structure plus the memory ids that were
// referenced by the model but do not exist.
type Parsed struct {
	Structure  *model.BookStructure
	DroppedIDs []string
}

type rawStructure struct {
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle"`
	Chapters  json.RawMessage `json:"chapters"`
	Rationale string          `json:"rationale"`
}

type rawChapter struct {
	ID             any    `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	MemoryIDs      []any  `json:"memoryIds"`
	Order          any    `json:"order"`
	EstimatedPages any    `json:"estimatedPages"`
	Period         string `json:"period"`
	Theme          string `json:"theme"`
}

// ParseStructure validates a model response for mode. When known is not
// nil, memory ids missing from it are dropped. Any error is a *ParseError.
//
// Missing fields get fallbacks: id "chapter-{n}", empty description and
// memory list, order n, DefaultChapterPages pages, and a per-mode book
// title. The page total is always recomputed from the chapters.
func ParseStructure(raw string, mode model.Mode, known map[string]bool) (*Parsed, error) {
	st, ok := settings[mode]
	if !ok {
		return nil, &ParseError{Reason: fmt.Sprintf("unknown mode %q", mode)}
	}

	body := stripFences(raw)
	if body == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	var rs rawStructure
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&rs); err != nil {
		return nil, &ParseError{Reason: "invalid json", Snippet: snippet(body), Err: err}
	}

	chapters := bytes.TrimSpace(rs.Chapters)
	if len(chapters) == 0 || chapters[0] != '[' {
		return nil, &ParseError{Reason: "chapters is not an array", Snippet: snippet(body)}
	}
	var rawChapters []json.RawMessage
	if err := json.Unmarshal(chapters, &rawChapters); err != nil {
		return nil, &ParseError{Reason: "chapters is not an array", Snippet: snippet(body), Err: err}
	}

	b := &model.BookStructure{
		Mode:      mode,
		Title:     strings.TrimSpace(rs.Title),
		Subtitle:  strings.TrimSpace(rs.Subtitle),
		Rationale: strings.TrimSpace(rs.Rationale),
		Chapters:  make([]model.Chapter, 0, len(rawChapters)),
	}
	if b.Title == "" {
		b.Title = st.fallbackTitle
	}

	var dropped []string
	seenChapter := map[string]bool{}
	for i, rc := range rawChapters {
		var c rawChapter
		if err := json.Unmarshal(rc, &c); err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("chapter %d is not an object", i+1), Snippet: snippet(string(rc)), Err: err}
		}

		ch := model.Chapter{
			ID:             scalarString(c.ID),
			Title:          strings.TrimSpace(c.Title),
			Description:    strings.TrimSpace(c.Description),
			Order:          positiveInt(c.Order, i+1),
			EstimatedPages: positiveInt(c.EstimatedPages, DefaultChapterPages),
			Period:         strings.TrimSpace(c.Period),
			Theme:          strings.TrimSpace(c.Theme),
			MemoryIDs:      []string{},
		}
		if ch.ID == "" || seenChapter[ch.ID] {
			ch.ID = fmt.Sprintf("chapter-%d", i+1)
		}
		seenChapter[ch.ID] = true
		if ch.Title == "" {
			ch.Title = fmt.Sprintf("Chapitre %d", i+1)
		}

		seenMem := map[string]bool{}
		for _, v := range c.MemoryIDs {
			id := scalarString(v)
			if id == "" || seenMem[id] {
				continue
			}
			if known != nil && !known[id] {
				dropped = append(dropped, id)
				continue
			}
			seenMem[id] = true
			ch.MemoryIDs = append(ch.MemoryIDs, id)
		}
		b.Chapters = append(b.Chapters, ch)
	}

	sort.SliceStable(b.Chapters, func(i, j int) bool { return b.Chapters[i].Order < b.Chapters[j].Order })
	b.Recount()

	return &Parsed{Structure: b, DroppedIDs: dropped}, nil
}

// stripFences removes a surrounding Markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}

// scalarString renders a JSON string or number as a string.
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}

// positiveInt reads a JSON number (or numeric string), rounding it, and
// returns def when it is missing or not positive.
func positiveInt(v any, def int) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		f = p
	default:
		return def
	}
	n := int(math.Round(f))
	if n <= 0 {
		return def
	}
	return n
}
