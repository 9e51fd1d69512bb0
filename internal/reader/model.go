package reader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/rcliao/plume/internal/chunker"
	"github.com/rcliao/plume/internal/manuscript"
	"github.com/rcliao/plume/internal/model"
)

const (
	baseColumn   = 72 // wrap width at the default font size
	minColumn    = 30
	sidebarWidth = 32
	chromeLines  = 4 // title bar, progress bar, status line, spacing
)

type palette struct {
	text, muted, accent, bg lipgloss.Color
}

var (
	dayPalette   = palette{text: "#1c1917", muted: "#78716c", accent: "#b45309", bg: "#faf8f5"}
	nightPalette = palette{text: "#e7e5e4", muted: "#a8a29e", accent: "#f59e0b", bg: "#1c1917"}
)

// Model is the bubbletea model of the reader.
type Model struct {
	ms     manuscript.Manuscript
	state  State
	vp     viewport.Model
	width  int
	height int
}

// New returns a reader for ms sized for an 80x24 terminal until the first
// window size message arrives.
func New(ms manuscript.Manuscript) *Model {
	m := &Model{
		ms:     ms,
		state:  NewState(len(ms.Chapters)),
		vp:     viewport.New(80, 24-chromeLines),
		width:  80,
		height: 24,
	}
	m.refresh()
	return m
}

// Run starts the reader on the alternate screen and blocks until quit.
func Run(ms manuscript.Manuscript) error {
	_, err := tea.NewProgram(New(ms), tea.WithAltScreen()).Run()
	return err
}

// State returns a copy of the navigation state.
func (m *Model) State() State { return m.state }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if msg.String() == "esc" && m.state.Sidebar {
			m.state.ToggleSidebar()
			m.refresh()
			return m, nil
		}
		return m, tea.Quit
	case "right", "l", "n":
		if m.state.Next() {
			m.refresh()
		}
		return m, nil
	case "left", "h", "p":
		if m.state.Prev() {
			m.refresh()
		}
		return m, nil
	case "+", "=":
		if m.state.Bigger() {
			m.refresh()
		}
		return m, nil
	case "-":
		if m.state.Smaller() {
			m.refresh()
		}
		return m, nil
	case "t":
		m.state.ToggleNight()
		m.refresh()
		return m, nil
	case "s":
		m.state.ToggleSidebar()
		m.refresh()
		return m, nil
	}

	if m.state.Sidebar {
		switch msg.String() {
		case "up", "k":
			m.state.MoveCursor(-1)
		case "down", "j":
			m.state.MoveCursor(1)
		case "enter":
			m.state.Jump(m.state.Cursor)
			m.refresh()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	m.state.Scroll = m.vp.YOffset
	return m, cmd
}

// Column is the wrap width for a terminal of the given width at the
// given font size. Bigger fonts give narrower columns.
func Column(termWidth, fontSize int, sidebar bool) int {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	col := baseColumn * DefaultFontSize / fontSize
	avail := termWidth - 4
	if sidebar {
		avail -= sidebarWidth
	}
	if col > avail {
		col = avail
	}
	if col < minColumn {
		col = minColumn
	}
	return col
}

// refresh re-renders the current chapter into the viewport. The scroll
// offset is kept unless the chapter changed (State.Scroll reset to 0).
func (m *Model) refresh() {
	col := Column(m.width, m.state.FontSize, m.state.Sidebar)
	m.vp.Width = col + 2
	m.vp.Height = max(1, m.height-chromeLines)
	m.vp.SetContent(m.renderChapter(col))
	m.vp.SetYOffset(m.state.Scroll)
	m.state.Scroll = m.vp.YOffset
}

func (m *Model) colors() palette {
	if m.state.Night {
		return nightPalette
	}
	return dayPalette
}

func (m *Model) renderChapter(col int) string {
	if len(m.ms.Chapters) == 0 {
		return "Aucun souvenir à afficher."
	}
	ch := m.ms.Chapters[m.state.Index]
	p := m.colors()
	muted := lipgloss.NewStyle().Foreground(p.muted)
	heading := lipgloss.NewStyle().Bold(true).Foreground(p.text)
	body := lipgloss.NewStyle().Foreground(p.text)

	var b strings.Builder
	b.WriteString(muted.Render(fmt.Sprintf("CHAPITRE %d", m.state.Index+1)))
	b.WriteString("\n\n")
	b.WriteString(heading.Render(wordwrap.String(ch.Title, col)))
	b.WriteString("\n")
	if ch.Description != "" {
		b.WriteString(muted.Italic(true).Render(wordwrap.String(ch.Description, col)))
		b.WriteString("\n")
	}

	sections := ch.Sections
	if len(sections) == 0 {
		sections = []model.Section{{Body: ch.Body}}
	}
	for i, sec := range sections {
		b.WriteString("\n")
		if i > 0 {
			b.WriteString(muted.Render(center("•", col)))
			b.WriteString("\n\n")
		}
		if sec.Title != "" {
			b.WriteString(heading.Render(wordwrap.String(sec.Title, col)))
			b.WriteString("\n")
		}
		if len(sec.Dates) > 0 {
			b.WriteString(muted.Render(strings.Join(sec.Dates, ", ")))
			b.WriteString("\n")
		}
		for _, ph := range sec.Photos {
			b.WriteString(muted.Render("[photo] " + ph))
			b.WriteString("\n")
		}
		for _, para := range chunker.Paragraphs(sec.Body) {
			b.WriteString(body.Render(wordwrap.String(para, col)))
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func (m *Model) View() string {
	p := m.colors()
	title := lipgloss.NewStyle().Bold(true).Foreground(p.accent).Render(m.ms.Title)
	main := lipgloss.JoinVertical(lipgloss.Left, title, m.vp.View(), m.progressBar(), m.status())
	if m.state.Sidebar {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar(), " ", main)
	}
	return lipgloss.NewStyle().Background(p.bg).Render(main)
}

func (m *Model) progressBar() string {
	p := m.colors()
	width := max(10, m.vp.Width)
	filled := int(m.state.Progress() * float64(width))
	bar := lipgloss.NewStyle().Foreground(p.accent).Render(strings.Repeat("█", filled))
	rest := lipgloss.NewStyle().Foreground(p.muted).Render(strings.Repeat("░", width-filled))
	return bar + rest
}

func (m *Model) status() string {
	s := m.state
	night := ""
	if s.Night {
		night = "  nuit"
	}
	line := fmt.Sprintf("%d/%d  %d%%  police %d%s  [←/→] chapitres  [s] sommaire  [q] quitter",
		min(s.Index+1, s.Total), s.Total, int(s.Progress()*100), s.FontSize, night)
	return lipgloss.NewStyle().Foreground(m.colors().muted).Render(line)
}

func (m *Model) sidebar() string {
	p := m.colors()
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Sommaire"))
	b.WriteString("\n")
	for i, ch := range m.ms.Chapters {
		label := fmt.Sprintf("%d. %s", i+1, ch.Title)
		if r := []rune(label); len(r) > sidebarWidth-4 {
			label = string(r[:sidebarWidth-5]) + "…"
		}
		style := lipgloss.NewStyle().Foreground(p.text)
		prefix := "  "
		if i == m.state.Cursor {
			style = style.Bold(true).Foreground(p.accent)
			prefix = "> "
		}
		b.WriteString(style.Render(prefix + label))
		b.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(sidebarWidth).Render(b.String())
}
