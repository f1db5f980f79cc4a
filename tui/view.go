// ABOUTME: Rendering entry point for the TUI
// ABOUTME: Implements the Bubble Tea View() function and the modal overlays

package tui

import (
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"remix-studio/workflow"
)

// View renders the TUI
func (m model) View() string {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] View panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	if m.quitting {
		return "Bye!\n"
	}

	var body string

	switch {
	case m.picking:
		body = m.renderPicker()
	case m.notice() != "":
		body = noticeStyle.Render(m.notice() + "\n\n" + dimStyle.Render("enter to dismiss"))
	case m.loading():
		body = m.renderOverlay()
	case m.mode == workflow.ModeCreate:
		body = m.renderCreate()
	default:
		body = m.renderRemix()
	}

	sections := []string{m.renderTabs(), body}

	if player := m.renderPlayer(); player != "" {
		sections = append(sections, player)
	}

	sections = append(sections, m.renderStatus(), m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTabs renders the mode switcher
func (m model) renderTabs() string {
	remix, create := tabStyle, tabStyle
	if m.mode == workflow.ModeCreate {
		create = activeTabStyle
	} else {
		remix = activeTabStyle
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("Remix Studio")+"  ",
		remix.Render("Remix"),
		create.Render("Create"),
	) + "\n"
}

// renderOverlay shows the spinner while the current mode's submission is in flight
func (m model) renderOverlay() string {
	text := "Creating your remix..."
	if m.mode == workflow.ModeCreate {
		text = "Creating your track..."
	}

	return overlayStyle.Render(m.spinner.View() + " " + text)
}

// renderPicker shows the file picker used to add uploads
func (m model) renderPicker() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Add audio files") + "\n")
	s.WriteString(dimStyle.Render(m.picker.CurrentDirectory) + "\n\n")
	s.WriteString(m.picker.View())
	s.WriteString("\n" + dimStyle.Render("enter: add  esc: close"))

	return s.String()
}

// renderStatus renders the status bar
func (m model) renderStatus() string {
	msg := "Ready"

	if m.statusMsg != "" && time.Since(m.statusMsgAge) < statusMessageDuration {
		msg = m.statusMsg
	} else if !m.loading() && !m.ready() {
		msg = m.notReadyHint()
	}

	return statusStyle.Width(max(m.width, 20)).Render(msg)
}

// ready reports whether the current mode would accept a submission
func (m model) ready() bool {
	if m.mode == workflow.ModeCreate {
		return m.create.Submission.Ready()
	}

	return m.remix.Submission.Ready()
}

// renderHelp renders the key hints for the focused area
func (m model) renderHelp() string {
	return m.help.ShortHelpView(append(m.areaHelp(), keys.ShortHelp()...))
}
