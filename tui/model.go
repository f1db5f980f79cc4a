// ABOUTME: Terminal UI model and core state management
// ABOUTME: Bubble Tea model hosting the remix and create workflows side by side

// Package tui provides the interactive terminal studio for remixing and creating tracks.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"remix-studio/backend"
	"remix-studio/config"
	"remix-studio/media"
	"remix-studio/workflow"
)

// Focusable areas, in tab order per mode
type area int

const (
	areaSearch area = iota
	areaResults
	areaGenres
	areaUploads
	areaLyrics
	areaVoice
)

var (
	remixAreas  = []area{areaSearch, areaResults, areaGenres}
	createAreas = []area{areaUploads, areaLyrics, areaVoice}
)

// Layout constants for UI dimensions
const (
	minListHeight  = 3
	maxListHeight  = 10
	pickerHeight   = 12
	lyricsHeight   = 4
	waveformWidth  = 64
	totalUIChrome  = 16 // tabs, headers, player, status and help lines
	defaultWidth   = 80
	playTickPeriod = 200 * time.Millisecond

	statusMessageDuration = 5 * time.Second
	maxUndoStackSize      = 50
	eventBuffer           = 16
)

// Messages produced by commands and background goroutines
type (
	searchDueMsg struct{ gen uint64 }

	searchResultMsg struct {
		seq   uint64
		items []backend.SearchResultItem
		err   error
	}

	genresMsg struct {
		genres []string
		err    error
	}

	submitDoneMsg struct {
		mode workflow.Mode
		job  uint64
		url  string
		err  error
	}

	loadDoneMsg struct {
		mode   workflow.Mode
		job    uint64
		ticket workflow.LoadTicket
		err    error
	}

	downloadDoneMsg struct {
		path string
		err  error
	}

	dropMsg struct{ paths []string }

	filesProbedMsg struct{ infos []media.FileInfo }

	playTickMsg struct{}

	configReloadedMsg struct {
		cfg config.Config
		err error
	}
)

// model holds the TUI state
type model struct {
	// Dependencies
	backend Backend
	config  *config.SharedConfig
	probe   func([]string) []media.FileInfo
	debugf  func(string, ...interface{})

	// Workflows
	remix  *workflow.RemixMode
	create *workflow.CreateMode
	remixW PlaybackWidget
	makeW  PlaybackWidget

	// Framework exception: Bubble Tea's Init/Update/View pattern doesn't allow passing
	// context through function parameters, so the program lifetime context lives here.
	ctx    context.Context //nolint:containedctx // See framework exception above
	cancel context.CancelFunc
	events chan tea.Msg // search timers, drop folder and config reloads

	// UI state
	mode         workflow.Mode
	focus        int // index into the current mode's areas
	resultCursor int
	genreCursor  int
	voiceCursor  int
	picking      bool
	ticking      bool

	search  textinput.Model
	lyrics  textarea.Model
	picker  filepicker.Model
	spinner spinner.Model
	help    help.Model

	width        int
	height       int
	quitting     bool
	statusMsg    string
	statusMsgAge time.Time
}

// Key bindings
type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Select     key.Binding
	Tab        key.Binding
	SwitchMode key.Binding
	Submit     key.Binding
	Play       key.Binding
	Download   key.Binding
	AddFiles   key.Binding
	Delete     key.Binding
	Undo       key.Binding
	Redo       key.Binding
	Dismiss    key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "less"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "more"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	SwitchMode: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "remix/create"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "submit"),
	),
	Play: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "play/pause"),
	),
	Download: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "download"),
	),
	AddFiles: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add files"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "remove track"),
	),
	Undo: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "redo"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("enter", "esc"),
		key.WithHelp("enter", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.SwitchMode, k.Submit, k.Play, k.Download, k.ForceQuit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Select},
		{k.AddFiles, k.Delete, k.Undo, k.Redo},
		k.ShortHelp(),
	}
}

// Styles
var (
	accent = lipgloss.Color("#6366f1")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#818cf8"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(accent).
			Padding(0, 2)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	focusedHeaderStyle = headerStyle.
				Foreground(accent).
				Underline(true)

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("15"))

	chosenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#818cf8")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Foreground(lipgloss.Color("15")).
			Padding(1, 3)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 3)
)

// Run starts the TUI with injected dependencies
func Run(deps Dependencies, drop *DropWatcher) error {
	m := initModel(deps)
	defer m.cancel()

	if deps.ConfigPath != "" {
		err := config.Watch(m.ctx, deps.ConfigPath, deps.Config, func(cfg config.Config, err error) {
			m.post(configReloadedMsg{cfg: cfg, err: err})
		})
		if err != nil {
			m.debugf("[TUI] config hot reload disabled: %v", err)
		}
	}

	if drop != nil {
		go drop.Run(m.ctx, func(paths []string) { m.post(dropMsg{paths: paths}) })
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// initModel creates the initial model with injected dependencies
func initModel(deps Dependencies) model {
	cfg := deps.Config.Get()

	debugf := deps.Debugf
	if debugf == nil {
		debugf = func(string, ...interface{}) {}
	}

	probe := deps.Probe
	if probe == nil {
		probe = media.ProbeAll
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := model{
		backend: deps.Backend,
		config:  deps.Config,
		probe:   probe,
		debugf:  debugf,
		remixW:  deps.RemixWidget,
		makeW:   deps.CreateWidget,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tea.Msg, eventBuffer),
		mode:    workflow.ModeRemix,
		width:   defaultWidth,
	}

	download := func(ctx context.Context, url, filename string) (string, error) {
		// Read at use time so a reloaded download_dir applies
		return deps.Backend.Download(ctx, url, deps.Config.Get().DownloadDir, filename)
	}

	search := workflow.NewSearchSelector(
		workflow.NewDebouncer(cfg.SearchDebounce()),
		cfg.MaxResults,
		func(gen uint64) { m.post(searchDueMsg{gen: gen}) },
		debugf,
	)

	m.remix = workflow.NewRemixMode(
		search,
		workflow.NewGenreSelector(cfg.Genres),
		deps.Backend,
		workflow.NewArtifactPlayer(deps.RemixWidget, workflow.RemixFilename, download),
		debugf,
	)

	m.create = workflow.NewCreateMode(
		workflow.NewUploadManager(cfg.DefaultWeight, maxUndoStackSize),
		cfg.VoiceStyles,
		deps.Backend,
		workflow.NewArtifactPlayer(deps.CreateWidget, workflow.CreationFilename, download),
		debugf,
	)

	m.search = textinput.New()
	m.search.Placeholder = "Search for a song..."
	m.search.Prompt = "🔎 "
	m.search.CharLimit = 200
	m.search.Focus()

	m.lyrics = textarea.New()
	m.lyrics.Placeholder = "Optional lyrics to sing over the mix"
	m.lyrics.ShowLineNumbers = false
	m.lyrics.SetHeight(lyricsHeight)
	m.lyrics.SetWidth(defaultWidth - 4)

	m.picker = filepicker.New()
	m.picker.AllowedTypes = append(media.AudioExtensions(), ".m3u", ".m3u8")
	m.picker.AutoHeight = false
	m.picker.SetHeight(pickerHeight)

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle))
	m.help = help.New()

	return m
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchGenres(m.ctx, m.backend),
		waitForEvent(m.events),
		textinput.Blink,
	)
}

// ========== Helpers ==========

// post hands a message from a background goroutine to the event loop.
// It never blocks: when the buffer is full the program is stalled or gone.
func (m model) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	default:
		m.debugf("[TUI] event buffer full, dropping %T", msg)
	}
}

// waitForEvent waits for background events and returns them as messages
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}

		return msg
	}
}

// areas returns the tab order of the current mode
func (m model) areas() []area {
	if m.mode == workflow.ModeCreate {
		return createAreas
	}

	return remixAreas
}

// focused returns the area holding keyboard focus
func (m model) focused() area {
	areas := m.areas()

	return areas[m.focus%len(areas)]
}

// loading reports whether the current mode has a submission in flight
func (m model) loading() bool {
	if m.mode == workflow.ModeCreate {
		return m.create.Submission.Loading()
	}

	return m.remix.Submission.Loading()
}

// notice returns the failure notice of the current mode
func (m model) notice() string {
	if m.mode == workflow.ModeCreate {
		return m.create.Submission.Notice()
	}

	return m.remix.Submission.Notice()
}

// player returns the artifact player of the current mode
func (m model) player() *workflow.ArtifactPlayer {
	if m.mode == workflow.ModeCreate {
		return m.create.Submission.Player()
	}

	return m.remix.Submission.Player()
}

// widget returns the playback widget of the current mode
func (m model) widget() PlaybackWidget {
	if m.mode == workflow.ModeCreate {
		return m.makeW
	}

	return m.remixW
}

// anyPlaying reports whether either mode is playing
func (m model) anyPlaying() bool {
	return m.remix.Submission.Player().Playing() || m.create.Submission.Player().Playing()
}

// setStatusMsg sets a transient status message with current timestamp
func (m *model) setStatusMsg(msg string) {
	m.statusMsg = msg
	m.statusMsgAge = time.Now()
}

// listHeight returns how many rows each list may show
func (m model) listHeight() int {
	h := (m.height - totalUIChrome) / 2
	if h < minListHeight {
		return minListHeight
	}

	if h > maxListHeight {
		return maxListHeight
	}

	return h
}

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return string(r[:maxLen])
	}

	return string(r[:maxLen-3]) + "..."
}
