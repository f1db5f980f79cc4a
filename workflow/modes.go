// ABOUTME: Remix and create modes built from the shared orchestrator
// ABOUTME: Each mode owns its selectors, payload builder and player

package workflow

import (
	"context"
	"errors"
	"slices"
	"strings"

	"remix-studio/backend"
)

// Failure notices shown per mode
const (
	RemixFailedNotice  = "Failed to create remix. Please try again."
	CreateFailedNotice = "Failed to create track. Please try again."
)

// RemixAPI is the backend call used by the remix mode
type RemixAPI interface {
	Remix(ctx context.Context, req backend.RemixRequest) (string, error)
}

// CreateAPI is the backend call used by the create mode
type CreateAPI interface {
	Create(ctx context.Context, req backend.CreateRequest) (string, error)
}

// RemixMode pairs a catalog track with a genre
type RemixMode struct {
	Search     *SearchSelector
	Genre      *GenreSelector
	Submission *Orchestrator[backend.RemixRequest]
}

// NewRemixMode wires the remix orchestrator over search and genre selection
func NewRemixMode(search *SearchSelector, genre *GenreSelector, api RemixAPI, player *ArtifactPlayer, debugf func(string, ...interface{})) *RemixMode {
	m := &RemixMode{Search: search, Genre: genre}

	m.Submission = NewOrchestrator(ModeSpec[backend.RemixRequest]{
		Mode:   ModeRemix,
		Ready:  func() bool { return RemixReady(m.Selection()) },
		Build:  m.payload,
		Call:   api.Remix,
		Notice: RemixFailedNotice,
	}, player, debugf)

	return m
}

// Selection returns the current track and genre choice
func (m *RemixMode) Selection() SelectionState {
	var s SelectionState

	if id, ok := m.Search.Selected(); ok {
		s.SelectedTrackID = &id
	}

	if genre, ok := m.Genre.Selected(); ok {
		s.SelectedGenre = &genre
	}

	return s
}

func (m *RemixMode) payload() (backend.RemixRequest, error) {
	s := m.Selection()
	if !RemixReady(s) {
		return backend.RemixRequest{}, ErrNotReady
	}

	return backend.RemixRequest{TrackID: *s.SelectedTrackID, Genre: *s.SelectedGenre}, nil
}

// CreationRequest carries the optional vocal settings of a creation
type CreationRequest struct {
	Lyrics     string
	VoiceStyle string
}

// CreateMode mixes uploaded tracks with optional vocals
type CreateMode struct {
	Uploads    *UploadManager
	Submission *Orchestrator[backend.CreateRequest]

	voices     []string
	lyrics     string
	voiceStyle string
}

// NewCreateMode wires the create orchestrator over the upload list
func NewCreateMode(uploads *UploadManager, voices []string, api CreateAPI, player *ArtifactPlayer, debugf func(string, ...interface{})) *CreateMode {
	m := &CreateMode{Uploads: uploads, voices: append([]string(nil), voices...)}
	if len(m.voices) > 0 {
		m.voiceStyle = m.voices[0]
	}

	m.Submission = NewOrchestrator(ModeSpec[backend.CreateRequest]{
		Mode:   ModeCreate,
		Ready:  func() bool { return CreateReady(m.Uploads.Len()) },
		Build:  m.payload,
		Call:   api.Create,
		Notice: CreateFailedNotice,
	}, player, debugf)

	return m
}

// SetLyrics stores the lyrics text as typed
func (m *CreateMode) SetLyrics(text string) {
	m.lyrics = text
}

// Lyrics returns the lyrics text as typed
func (m *CreateMode) Lyrics() string {
	return m.lyrics
}

// SetVoiceStyle chooses one of the offered voice styles
func (m *CreateMode) SetVoiceStyle(style string) error {
	if len(m.voices) > 0 && !slices.Contains(m.voices, style) {
		return ErrUnknownVoice
	}

	m.voiceStyle = style

	return nil
}

// VoiceStyle returns the chosen voice style
func (m *CreateMode) VoiceStyle() string {
	return m.voiceStyle
}

// Voices returns the offered voice styles
func (m *CreateMode) Voices() []string {
	return append([]string(nil), m.voices...)
}

// Creation returns the vocal settings, or nil when the lyrics are blank
func (m *CreateMode) Creation() *CreationRequest {
	lyrics := strings.TrimSpace(m.lyrics)
	if lyrics == "" {
		return nil
	}

	return &CreationRequest{Lyrics: lyrics, VoiceStyle: m.voiceStyle}
}

func (m *CreateMode) payload() (backend.CreateRequest, error) {
	tracks := m.Uploads.Tracks()
	if len(tracks) == 0 {
		return backend.CreateRequest{}, errors.New("no tracks uploaded")
	}

	req := backend.CreateRequest{
		Files:     make([]backend.UploadFile, len(tracks)),
		MixRatios: m.Uploads.Weights(),
	}

	for i, t := range tracks {
		req.Files[i] = backend.UploadFile{
			Name:        t.File.Name,
			ContentType: t.File.MediaType,
			Open:        t.File.Open,
		}
	}

	if c := m.Creation(); c != nil {
		req.Lyrics = c.Lyrics
		req.VoiceStyle = c.VoiceStyle
	}

	return req, nil
}
