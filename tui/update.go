// ABOUTME: Event handling and state updates for the TUI
// ABOUTME: Implements the Bubble Tea Update() function and message handlers

package tui

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"remix-studio/media"
	"remix-studio/workflow"
)

// Update handles messages and updates the model
//
//nolint:ireturn // Bubble Tea framework requires returning tea.Model interface
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] Update panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.lyrics.SetWidth(max(msg.Width-4, 20))
		m.help.Width = msg.Width

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd

	case searchDueMsg:
		cmd := m.handleSearchDue(msg)

		return m, tea.Batch(cmd, waitForEvent(m.events))

	case searchResultMsg:
		if m.remix.Search.Resolve(msg.seq, msg.items, msg.err) {
			m.resultCursor = clampCursor(m.resultCursor, len(m.remix.Search.Results()))
		} else if msg.err != nil && m.remix.Search.Latest(msg.seq) {
			m.setStatusMsg("Search failed")
		}

		return m, nil

	case genresMsg:
		if msg.err != nil {
			m.debugf("[TUI] genre list unavailable, using configured genres: %v", msg.err)
			return m, nil
		}

		m.remix.Genre.SetGenres(msg.genres)
		m.genreCursor = clampCursor(m.genreCursor, len(msg.genres))

		return m, nil

	case submitDoneMsg:
		return m, m.handleSubmitDone(msg)

	case loadDoneMsg:
		m.handleLoadDone(msg)

		return m, nil

	case downloadDoneMsg:
		if msg.err != nil {
			m.debugf("[TUI] download failed: %v", msg.err)
			m.setStatusMsg("Download failed")
		} else {
			m.setStatusMsg("Saved " + msg.path)
		}

		return m, nil

	case dropMsg:
		return m, tea.Batch(m.probeFiles(msg.paths), waitForEvent(m.events))

	case filesProbedMsg:
		m.addUploads(msg)

		return m, nil

	case playTickMsg:
		if m.anyPlaying() {
			return m, playTick()
		}

		m.ticking = false

		return m, nil

	case configReloadedMsg:
		if msg.err != nil {
			m.debugf("[TUI] config reload failed: %v", msg.err)
			m.setStatusMsg("Config reload failed")
		} else {
			m.debugf("[TUI] config reloaded: backend %s", msg.cfg.BackendURL)
			m.setStatusMsg("Config reloaded")
		}

		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		if !m.remix.Submission.Loading() && !m.create.Submission.Loading() {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Anything else belongs to the embedded components
	return m.updateComponents(msg)
}

// updateComponents forwards internal component messages such as cursor blinks and directory reads
func (m model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.picking {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd

	switch m.focused() {
	case areaSearch:
		m.search, cmd = m.search.Update(msg)
	case areaLyrics:
		m.lyrics, cmd = m.lyrics.Update(msg)
	}

	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey routes a key press according to modal state, mode and focus
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return m.quit()
	}

	if m.picking {
		return m.handlePickerKey(msg)
	}

	if m.notice() != "" {
		if key.Matches(msg, keys.Dismiss) {
			m.dismissNotice()
		}

		return m, nil
	}

	if key.Matches(msg, keys.SwitchMode) {
		return m, m.switchMode()
	}

	// The loading overlay covers the current mode's controls
	if m.loading() {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Tab):
		return m, m.nextArea()

	case key.Matches(msg, keys.Submit):
		return m, m.submit()

	case key.Matches(msg, keys.Play):
		return m, m.togglePlayback()

	case key.Matches(msg, keys.Download):
		return m, m.download()
	}

	switch m.focused() {
	case areaSearch:
		return m.handleSearchKey(msg)

	case areaLyrics:
		var cmd tea.Cmd
		m.lyrics, cmd = m.lyrics.Update(msg)
		m.create.SetLyrics(m.lyrics.Value())

		return m, cmd

	case areaResults:
		m.handleResultsKey(msg)

	case areaGenres:
		m.handleGenresKey(msg)

	case areaUploads:
		return m, m.handleUploadsKey(msg)

	case areaVoice:
		m.handleVoiceKey(msg)
	}

	if key.Matches(msg, keys.Quit) {
		return m.quit()
	}

	return m, nil
}

// quit cancels background work and ends the program
func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()

	return m, tea.Quit
}

// switchMode flips between remix and create, keeping each mode's state
func (m *model) switchMode() tea.Cmd {
	if m.mode == workflow.ModeRemix {
		m.mode = workflow.ModeCreate
	} else {
		m.mode = workflow.ModeRemix
	}

	m.focus = 0

	return m.applyFocus()
}

// nextArea moves focus to the next area of the current mode
func (m *model) nextArea() tea.Cmd {
	m.focus = (m.focus + 1) % len(m.areas())

	return m.applyFocus()
}

// applyFocus gives keyboard focus to the text component under the cursor, if any
func (m *model) applyFocus() tea.Cmd {
	m.search.Blur()
	m.lyrics.Blur()

	switch m.focused() {
	case areaSearch:
		return m.search.Focus()
	case areaLyrics:
		return m.lyrics.Focus()
	}

	return nil
}

// dismissNotice clears the failure notice of the current mode
func (m *model) dismissNotice() {
	if m.mode == workflow.ModeCreate {
		m.create.Submission.DismissNotice()
	} else {
		m.remix.Submission.DismissNotice()
	}
}

// ========== Remix mode ==========

// handleSearchKey feeds the search box and restarts the quiet period when the text changes
func (m model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.search.Value()

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)

	if after := m.search.Value(); after != before {
		m.remix.Search.Input(after)

		if len(m.remix.Search.Results()) == 0 {
			m.resultCursor = 0
		}
	}

	return m, cmd
}

// fetchGenres asks the backend for the genre list
func fetchGenres(ctx context.Context, api Backend) tea.Cmd {
	return func() tea.Msg {
		genres, err := api.Genres(ctx)

		return genresMsg{genres: genres, err: err}
	}
}

// handleSearchDue issues the query once typing has paused
func (m model) handleSearchDue(msg searchDueMsg) tea.Cmd {
	req, ok := m.remix.Search.Due(msg.gen)
	if !ok {
		return nil
	}

	m.debugf("[TUI] search %d: %q", req.Seq, req.Query)

	ctx, api := m.ctx, m.backend

	return func() tea.Msg {
		items, err := api.Search(ctx, req.Query, req.MaxResults)

		return searchResultMsg{seq: req.Seq, items: items, err: err}
	}
}

func (m *model) handleResultsKey(msg tea.KeyMsg) {
	results := m.remix.Search.Results()

	switch {
	case key.Matches(msg, keys.Up):
		m.resultCursor = clampCursor(m.resultCursor-1, len(results))
	case key.Matches(msg, keys.Down):
		m.resultCursor = clampCursor(m.resultCursor+1, len(results))
	case key.Matches(msg, keys.Select):
		if err := m.remix.Search.SelectAt(m.resultCursor); err != nil {
			m.debugf("[TUI] select result: %v", err)
		}
	}
}

func (m *model) handleGenresKey(msg tea.KeyMsg) {
	genres := m.remix.Genre.Genres()

	switch {
	case key.Matches(msg, keys.Up, keys.Left):
		m.genreCursor = clampCursor(m.genreCursor-1, len(genres))
	case key.Matches(msg, keys.Down, keys.Right):
		m.genreCursor = clampCursor(m.genreCursor+1, len(genres))
	case key.Matches(msg, keys.Select):
		if err := m.remix.Genre.SelectAt(m.genreCursor); err != nil {
			m.debugf("[TUI] select genre: %v", err)
		}
	}
}

// ========== Create mode ==========

func (m *model) handleUploadsKey(msg tea.KeyMsg) tea.Cmd {
	uploads := m.create.Uploads
	step := m.config.Get().WeightStep

	switch {
	case key.Matches(msg, keys.Up):
		uploads.MoveCursor(-1)
	case key.Matches(msg, keys.Down):
		uploads.MoveCursor(1)
	case key.Matches(msg, keys.Left):
		_ = uploads.Nudge(uploads.Cursor(), -step)
	case key.Matches(msg, keys.Right):
		_ = uploads.Nudge(uploads.Cursor(), step)
	case key.Matches(msg, keys.Delete):
		if err := uploads.Remove(uploads.Cursor()); err == nil {
			m.setStatusMsg("Removed track (u to undo)")
		}
	case key.Matches(msg, keys.Undo):
		if !uploads.Undo() {
			m.setStatusMsg("Nothing to undo")
		}
	case key.Matches(msg, keys.Redo):
		if !uploads.Redo() {
			m.setStatusMsg("Nothing to redo")
		}
	case key.Matches(msg, keys.AddFiles):
		m.picking = true

		return m.picker.Init()
	}

	return nil
}

func (m *model) handleVoiceKey(msg tea.KeyMsg) {
	voices := m.create.Voices()
	if len(voices) == 0 {
		return
	}

	switch {
	case key.Matches(msg, keys.Left, keys.Up):
		m.voiceCursor = (m.voiceCursor + len(voices) - 1) % len(voices)
	case key.Matches(msg, keys.Right, keys.Down):
		m.voiceCursor = (m.voiceCursor + 1) % len(voices)
	default:
		return
	}

	_ = m.create.SetVoiceStyle(voices[m.voiceCursor])
}

// handlePickerKey drives the file picker overlay
func (m model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		return m, tea.Batch(cmd, m.probeFiles([]string{path}))
	}

	return m, cmd
}

// probeFiles classifies picked or dropped files off the event loop
func (m model) probeFiles(paths []string) tea.Cmd {
	probe := m.probe

	debugf := m.debugf

	return func() tea.Msg {
		files, err := media.ExpandPlaylists(paths)
		if err != nil {
			debugf("[TUI] playlist unreadable: %v", err)

			files = slices.DeleteFunc(slices.Clone(paths), media.IsPlaylist)
		}

		return filesProbedMsg{infos: probe(files)}
	}
}

// addUploads appends the audio files of a batch; anything else is dropped silently
func (m *model) addUploads(msg filesProbedMsg) {
	accepted := m.create.Uploads.Add(msg.infos)

	for _, info := range msg.infos {
		if !info.IsAudio() {
			m.debugf("[TUI] skipped %s (%s, err=%v)", info.Name, info.MediaType, info.Err)
		}
	}

	if accepted > 0 {
		m.setStatusMsg(fmt.Sprintf("Added %d track(s)", accepted))
	}
}

// ========== Submission and playback ==========

// submit starts a submission for the current mode
func (m *model) submit() tea.Cmd {
	var cmd tea.Cmd
	var err error

	if m.mode == workflow.ModeCreate {
		cmd, err = submitCmd(m.ctx, m.create.Submission)
	} else {
		cmd, err = submitCmd(m.ctx, m.remix.Submission)
	}

	switch {
	case errors.Is(err, workflow.ErrNotReady):
		m.setStatusMsg(m.notReadyHint())
		return nil
	case err != nil:
		m.debugf("[TUI] submit rejected: %v", err)
		return nil
	}

	return tea.Batch(cmd, m.spinner.Tick)
}

// notReadyHint explains what the current mode still needs
func (m model) notReadyHint() string {
	if m.mode == workflow.ModeCreate {
		return "Add at least one audio track first"
	}

	return "Choose a track and a genre first"
}

// submitCmd accepts a submission and returns the command running the backend call
func submitCmd[P any](ctx context.Context, o *workflow.Orchestrator[P]) (tea.Cmd, error) {
	job, err := o.Begin()
	if err != nil {
		return nil, err
	}

	mode := o.Mode()

	return func() tea.Msg {
		url, err := o.Run(ctx, job)

		return submitDoneMsg{mode: mode, job: job.ID, url: url, err: err}
	}, nil
}

// resolveCmd applies a backend outcome and returns the command loading the artifact, if any
func resolveCmd[P any](ctx context.Context, o *workflow.Orchestrator[P], msg submitDoneMsg) tea.Cmd {
	ticket, ok := o.Resolve(msg.job, msg.url, msg.err)
	if !ok {
		return nil
	}

	player := o.Player()

	return func() tea.Msg {
		err := player.Load(ctx, ticket)

		return loadDoneMsg{mode: msg.mode, job: msg.job, ticket: ticket, err: err}
	}
}

func (m model) handleSubmitDone(msg submitDoneMsg) tea.Cmd {
	if msg.mode == workflow.ModeCreate {
		return resolveCmd(m.ctx, m.create.Submission, msg)
	}

	return resolveCmd(m.ctx, m.remix.Submission, msg)
}

func (m *model) handleLoadDone(msg loadDoneMsg) {
	if msg.mode == workflow.ModeCreate {
		m.create.Submission.Loaded(msg.job, msg.ticket, msg.err)
	} else {
		m.remix.Submission.Loaded(msg.job, msg.ticket, msg.err)
	}
}

// togglePlayback plays or pauses the current mode's artifact
func (m *model) togglePlayback() tea.Cmd {
	if !m.player().TogglePlayback() || m.ticking {
		return nil
	}

	m.ticking = true

	return playTick()
}

// playTick redraws the progress cursor while something plays
func playTick() tea.Cmd {
	return tea.Tick(playTickPeriod, func(time.Time) tea.Msg {
		return playTickMsg{}
	})
}

// download saves the current mode's artifact; without one it does nothing
func (m model) download() tea.Cmd {
	save, ok := m.player().PrepareDownload()
	if !ok {
		return nil
	}

	ctx := m.ctx

	return func() tea.Msg {
		path, err := save(ctx)

		return downloadDoneMsg{path: path, err: err}
	}
}

// clampCursor keeps a list cursor inside [0, n)
func clampCursor(pos, n int) int {
	if pos >= n {
		pos = n - 1
	}

	if pos < 0 {
		pos = 0
	}

	return pos
}
