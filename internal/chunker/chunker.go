// Package chunker splits memory narratives into paragraphs and search
// chunks. Dictated memories often arrive as one long line, so oversized
// paragraphs are cut on sentence boundaries rather than on newlines.
package chunker

import (
	"strings"
	"unicode"
)

const (
	DefaultTargetSize = 400
	DefaultMinSize    = 100
	DefaultMaxSize    = 600
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MinSize    int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MinSize:    DefaultMinSize,
		MaxSize:    DefaultMaxSize,
	}
}

// ChunkResult is a chunk and the paragraph range it came from (1-based).
type ChunkResult struct {
	Text      string
	StartLine int
	EndLine   int
}

// Paragraphs splits text on blank lines, trimming each paragraph and
// folding single newlines inside a paragraph into spaces.
func Paragraphs(text string) []string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, strings.Join(cur, " "))
		cur = nil
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

// Chunk groups paragraphs into chunks of roughly opts.TargetSize bytes.
// Text no longer than opts.MaxSize is returned as a single chunk.
func Chunk(text string, opts Options) []ChunkResult {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}

	paras := Paragraphs(text)
	if len(paras) == 0 {
		return nil
	}

	joined := strings.Join(paras, "\n\n")
	if len(joined) <= opts.MaxSize {
		return []ChunkResult{{Text: joined, StartLine: 1, EndLine: len(paras)}}
	}

	var results []ChunkResult
	var accum []string
	start := 1

	flush := func(end int) {
		if len(accum) == 0 {
			return
		}
		t := strings.Join(accum, "\n\n")
		if len(t) > opts.MaxSize {
			for _, piece := range splitSentences(t, opts.TargetSize) {
				results = append(results, ChunkResult{Text: piece, StartLine: start, EndLine: end})
			}
		} else {
			results = append(results, ChunkResult{Text: t, StartLine: start, EndLine: end})
		}
		accum = nil
		start = end + 1
	}

	for i, p := range paras {
		if len(accum) > 0 {
			size := len(strings.Join(accum, "\n\n")) + 2 + len(p)
			if size > opts.TargetSize {
				flush(i)
			}
		}
		accum = append(accum, p)
	}
	flush(len(paras))

	return mergeTail(results, opts.MinSize)
}

// mergeTail folds a trailing chunk shorter than minSize into its
// predecessor when both came from the same paragraph range boundary.
func mergeTail(results []ChunkResult, minSize int) []ChunkResult {
	n := len(results)
	if n < 2 || len(results[n-1].Text) >= minSize {
		return results
	}
	prev := &results[n-2]
	prev.Text += " " + results[n-1].Text
	prev.EndLine = results[n-1].EndLine
	return results[:n-1]
}

// splitSentences cuts text into pieces near target bytes, preferring
// sentence ends, then spaces.
func splitSentences(text string, target int) []string {
	var out []string
	for len(text) > target {
		cut := lastBoundary(text[:target], isSentenceEnd)
		if cut <= 0 {
			cut = lastBoundary(text[:target], unicode.IsSpace)
		}
		if cut <= 0 {
			cut = target
			for cut < len(text) && !startsRune(text, cut) {
				cut++
			}
		}
		piece := strings.TrimSpace(text[:cut])
		if piece != "" {
			out = append(out, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// lastBoundary returns the byte offset just after the last rune in s
// matching fn, or -1.
func lastBoundary(s string, fn func(rune) bool) int {
	best := -1
	for i, r := range s {
		if fn(r) {
			best = i + len(string(r))
		}
	}
	return best
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func startsRune(s string, i int) bool {
	return i >= len(s) || s[i]&0xC0 != 0x80
}
