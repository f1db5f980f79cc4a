// ABOUTME: ArtifactPlayer: owns one playback widget and the visibility of its controls
// ABOUTME: Loads replace the previous artifact; stale load completions are ignored

package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Widget is the playback widget contract
type Widget interface {
	Load(ctx context.Context, url string) error
	PlayPause()
	IsPlaying() bool
	Reset()
}

// DownloadFunc saves the artifact at url under filename and returns where it went
type DownloadFunc func(ctx context.Context, url, filename string) (string, error)

// Default download file names per mode
const (
	RemixFilename    = "remix.mp3"
	CreationFilename = "creation.mp3"
)

// LoadTicket identifies one load; only the newest ticket may complete
type LoadTicket struct {
	Token uint64
	URL   string
}

// ArtifactPlayer reveals playback controls only once an artifact has loaded
type ArtifactPlayer struct {
	widget   Widget
	filename string
	download DownloadFunc

	token   uint64
	url     string
	visible bool
}

// NewArtifactPlayer binds a widget; filename is the default download name
func NewArtifactPlayer(widget Widget, filename string, download DownloadFunc) *ArtifactPlayer {
	return &ArtifactPlayer{widget: widget, filename: filename, download: download}
}

// Begin resets the widget and hides the controls ahead of loading url
func (p *ArtifactPlayer) Begin(url string) LoadTicket {
	p.widget.Reset()
	p.token++
	p.url = ""
	p.visible = false

	return LoadTicket{Token: p.token, URL: url}
}

// Load runs the widget load for ticket. It may run outside the event loop.
func (p *ArtifactPlayer) Load(ctx context.Context, ticket LoadTicket) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("widget load panicked: %v\n%s", r, debug.Stack())
		}
	}()

	return p.widget.Load(ctx, ticket.URL)
}

// Finish applies a load result. It reports false for a superseded ticket.
func (p *ArtifactPlayer) Finish(ticket LoadTicket, err error) bool {
	if ticket.Token != p.token {
		return false
	}

	if err != nil {
		return true
	}

	p.url = ticket.URL
	p.visible = true

	return true
}

// TogglePlayback toggles the widget and returns its playing state after the toggle
func (p *ArtifactPlayer) TogglePlayback() bool {
	if !p.visible {
		return false
	}

	p.widget.PlayPause()

	return p.widget.IsPlaying()
}

// Playing reports whether the widget is playing
func (p *ArtifactPlayer) Playing() bool {
	return p.visible && p.widget.IsPlaying()
}

// Visible reports whether playback controls are shown
func (p *ArtifactPlayer) Visible() bool {
	return p.visible
}

// URL returns the loaded artifact URL, empty before the first successful load
func (p *ArtifactPlayer) URL() string {
	return p.url
}

// Filename returns the default download name
func (p *ArtifactPlayer) Filename() string {
	return p.filename
}

// PrepareDownload captures the loaded artifact for saving outside the event loop.
// It reports false when nothing has been loaded.
func (p *ArtifactPlayer) PrepareDownload() (func(ctx context.Context) (string, error), bool) {
	if !p.visible || p.url == "" || p.download == nil {
		return nil, false
	}

	url, filename, download := p.url, p.filename, p.download

	return func(ctx context.Context) (string, error) {
		path, err := download(ctx, url, filename)
		if err != nil {
			return "", fmt.Errorf("failed to download %s: %w", filename, err)
		}

		return path, nil
	}, true
}

// Download saves the loaded artifact. Without one it does nothing and returns "".
func (p *ArtifactPlayer) Download(ctx context.Context) (string, error) {
	save, ok := p.PrepareDownload()
	if !ok {
		return "", nil
	}

	return save(ctx)
}
