// Package reader presents an assembled manuscript one chapter at a time
// in the terminal.
package reader

// Font size bounds, in points.
const (
	DefaultFontSize = 18
	MinFontSize     = 14
	MaxFontSize     = 24
	FontStep        = 2
)

// State is the reader's navigation state. It holds no content; Total is
// the number of chapters. Navigation is clamped at both ends.
type State struct {
	Index    int
	Total    int
	FontSize int
	Night    bool
	Sidebar  bool
	// Cursor is the highlighted sidebar entry.
	Cursor int
	// Scroll is the line offset inside the current chapter.
	Scroll int
}

// NewState starts at the first of total chapters.
func NewState(total int) State {
	if total < 0 {
		total = 0
	}
	return State{Total: total, FontSize: DefaultFontSize}
}

// Next moves to the following chapter. It reports whether the index changed.
func (s *State) Next() bool {
	if s.Index+1 >= s.Total {
		return false
	}
	s.Index++
	s.Scroll = 0
	s.Cursor = s.Index
	return true
}

// Prev moves to the previous chapter.
func (s *State) Prev() bool {
	if s.Index <= 0 {
		return false
	}
	s.Index--
	s.Scroll = 0
	s.Cursor = s.Index
	return true
}

// Jump opens chapter i (clamped), scrolls to its top and closes the sidebar.
func (s *State) Jump(i int) {
	if s.Total == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= s.Total {
		i = s.Total - 1
	}
	s.Index = i
	s.Cursor = i
	s.Scroll = 0
	s.Sidebar = false
}

// Progress is (Index+1)/Total, or 0 when there is nothing to read.
func (s State) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Index+1) / float64(s.Total)
}

func (s *State) Bigger() bool {
	if s.FontSize+FontStep > MaxFontSize {
		return false
	}
	s.FontSize += FontStep
	return true
}

func (s *State) Smaller() bool {
	if s.FontSize-FontStep < MinFontSize {
		return false
	}
	s.FontSize -= FontStep
	return true
}

func (s *State) ToggleNight() { s.Night = !s.Night }

// ToggleSidebar opens the chapter list with the current chapter highlighted.
func (s *State) ToggleSidebar() {
	s.Sidebar = !s.Sidebar
	s.Cursor = s.Index
}

// MoveCursor moves the sidebar highlight by delta, clamped.
func (s *State) MoveCursor(delta int) {
	if s.Total == 0 {
		return
	}
	s.Cursor += delta
	if s.Cursor < 0 {
		s.Cursor = 0
	}
	if s.Cursor >= s.Total {
		s.Cursor = s.Total - 1
	}
}
