// ABOUTME: Rendering functions for TUI components
// ABOUTME: Draws the remix and create panels, the upload sliders and the player

package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"

	"remix-studio/backend"
)

const sliderWidth = 20

// sectionHeader renders a panel title, highlighted when the area has focus
func (m model) sectionHeader(a area, title string) string {
	if m.focused() == a && !m.picking {
		return focusedHeaderStyle.Render("► "+title) + "\n"
	}

	return headerStyle.Render("  "+title) + "\n"
}

// renderRemix renders the search box, result list and genre choice
func (m model) renderRemix() string {
	var s strings.Builder

	s.WriteString(m.sectionHeader(areaSearch, "Search"))
	s.WriteString(m.search.View() + "\n\n")

	results := m.remix.Search.Results()
	selected, _ := m.remix.Search.Selected()

	s.WriteString(m.sectionHeader(areaResults, fmt.Sprintf("Results (%d)", len(results))))

	if len(results) == 0 {
		s.WriteString(dimStyle.Render("  type to search the catalog") + "\n")
	}

	start, end := NewViewportManager(m.listHeight(), m.resultCursor, len(results)).Window()
	for i := start; i < end; i++ {
		r := results[i]

		marker := "  "
		if r.ID == selected {
			marker = "● "
		}

		line := truncate(fmt.Sprintf("%s%s · %s", marker, r.Title, r.ChannelName), max(m.width-4, 20))

		switch {
		case i == m.resultCursor && m.focused() == areaResults:
			s.WriteString(cursorStyle.Render(line) + "\n")
		case r.ID == selected:
			s.WriteString(chosenStyle.Render(line) + "\n")
		default:
			s.WriteString(line + "\n")
		}
	}

	if selected != "" && !containsID(results, selected) {
		s.WriteString(chosenStyle.Render("  ● selected track "+selected) + "\n")
	}

	s.WriteString("\n" + m.sectionHeader(areaGenres, "Genre"))
	s.WriteString(m.renderGenres() + "\n")

	return s.String()
}

// renderGenres renders the genre choices on one line
func (m model) renderGenres() string {
	chosen, _ := m.remix.Genre.Selected()

	cells := make([]string, 0, len(m.remix.Genre.Genres()))

	for i, g := range m.remix.Genre.Genres() {
		cell := " " + g + " "

		switch {
		case i == m.genreCursor && m.focused() == areaGenres:
			cell = cursorStyle.Render(cell)
		case g == chosen:
			cell = activeTabStyle.Render(g)
		}

		cells = append(cells, cell)
	}

	if chosen != "" && !slices.Contains(m.remix.Genre.Genres(), chosen) {
		cells = append(cells, dimStyle.Render("(chosen: "+chosen+")"))
	}

	return "  " + strings.Join(cells, " ")
}

// renderCreate renders the upload list with weight sliders, the lyrics box and the voice choice
func (m model) renderCreate() string {
	var s strings.Builder

	rows := m.create.Uploads.Rows()

	s.WriteString(m.sectionHeader(areaUploads, fmt.Sprintf("Tracks (%d)", len(rows))))

	if len(rows) == 0 {
		s.WriteString(dimStyle.Render("  press a to add audio files") + "\n")
	}

	nameWidth := max(m.width-sliderWidth-16, 12)

	start, end := NewViewportManager(m.listHeight(), m.create.Uploads.Cursor(), len(rows)).Window()
	for _, row := range rows[start:end] {
		line := fmt.Sprintf("%2d. %-*s %s %3d%%",
			row.Position+1, nameWidth, truncate(row.Name, nameWidth), renderSlider(row.Weight), row.Percent)

		if row.Selected && m.focused() == areaUploads {
			s.WriteString(cursorStyle.Render(line) + "\n")
		} else {
			s.WriteString(line + "\n")
		}
	}

	s.WriteString("\n" + m.sectionHeader(areaLyrics, "Lyrics"))
	s.WriteString(m.lyrics.View() + "\n\n")

	s.WriteString(m.sectionHeader(areaVoice, "Voice"))

	voice := m.create.VoiceStyle()
	if m.create.Creation() == nil {
		voice = dimStyle.Render(voice + " (used when lyrics are given)")
	}

	s.WriteString("  ‹ " + voice + " ›\n")

	return s.String()
}

// renderSlider draws a weight in [0, 1] as a bar
func renderSlider(w float64) string {
	filled := int(w*sliderWidth + 0.5)

	return "[" + chosenStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", sliderWidth-filled)) + "]"
}

// renderPlayer renders the current mode's artifact controls, hidden until an artifact has loaded
func (m model) renderPlayer() string {
	player := m.player()
	if !player.Visible() || m.picking {
		return ""
	}

	w := m.widget()

	state := "▶ paused"
	if player.Playing() {
		state = "⏸ playing"
	}

	wave := w.View(min(max(m.width-4, 10), waveformWidth))

	return fmt.Sprintf("%s\n%s  %s / %s  %s\n",
		wave,
		chosenStyle.Render(state),
		formatClock(w.Position()),
		formatClock(w.Duration()),
		dimStyle.Render("ctrl+d saves "+player.Filename()),
	)
}

// areaHelp returns the key hints specific to the focused area
func (m model) areaHelp() []key.Binding {
	if m.picking {
		return nil
	}

	switch m.focused() {
	case areaResults:
		return []key.Binding{keys.Up, keys.Down, keys.Select}
	case areaGenres:
		return []key.Binding{keys.Left, keys.Right, keys.Select}
	case areaUploads:
		return []key.Binding{keys.AddFiles, keys.Left, keys.Right, keys.Delete, keys.Undo}
	case areaVoice:
		return []key.Binding{keys.Left, keys.Right}
	}

	return nil
}

// formatClock renders a duration as m:ss
func formatClock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)

	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func containsID(results []backend.SearchResultItem, id string) bool {
	for _, r := range results {
		if r.ID == id {
			return true
		}
	}

	return false
}
