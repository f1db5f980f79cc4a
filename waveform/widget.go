// ABOUTME: Waveform playback widget: loads an artifact, draws its envelope, tracks play/pause
// ABOUTME: Playback is a transport clock over the decoded duration; no audio device is opened

// Package waveform renders audio artifacts as a terminal waveform with a
// play/pause transport. It satisfies the playback widget contract used by
// the workflow package.
package waveform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ErrSuperseded is returned by Load when Reset or another Load happened while it was running
var ErrSuperseded = errors.New("load superseded")

// ErrEmptyArtifact is returned when the artifact has no content
var ErrEmptyArtifact = errors.New("empty artifact")

// maxArtifactBytes bounds how much of an artifact is read for drawing
const maxArtifactBytes = 256 << 20

// Fetcher opens an artifact URL for reading
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

var (
	waveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#818cf8"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4f46e5"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6366f1"))
)

var bars = []rune("▁▂▃▄▅▆▇█")

// Widget holds one loaded artifact at a time
type Widget struct {
	fetch   Fetcher
	buckets int
	now     func() time.Time

	mu       sync.Mutex
	gen      uint64
	url      string
	peaks    []float64
	duration time.Duration
	loaded   bool
	playing  bool
	started  time.Time     // wall time when playback last started
	offset   time.Duration // position accumulated before the last start
}

// New creates a widget that draws envelopes with the given bucket count
func New(fetch Fetcher, buckets int) *Widget {
	if buckets <= 0 {
		buckets = 120
	}

	return &Widget{fetch: fetch, buckets: buckets, now: time.Now}
}

// Load fetches and decodes the artifact, replacing whatever was loaded before
func (w *Widget) Load(ctx context.Context, url string) error {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	body, err := w.fetch.Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, maxArtifactBytes))
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	if len(data) == 0 {
		return ErrEmptyArtifact
	}

	var (
		peaks    []float64
		duration time.Duration
	)

	if pcm, err := DecodeWAV(data); err == nil {
		peaks = Peaks(pcm.Samples, w.buckets)
		duration = time.Duration(pcm.Duration() * float64(time.Second))
	} else {
		// Compressed formats are not decoded; draw a byte-energy outline instead
		peaks = ByteEnergy(data, w.buckets)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen {
		return ErrSuperseded
	}

	w.url = url
	w.peaks = peaks
	w.duration = duration
	w.loaded = true
	w.playing = false
	w.offset = 0

	return nil
}

// Reset drops the loaded artifact and invalidates loads still in progress
func (w *Widget) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	w.url = ""
	w.peaks = nil
	w.duration = 0
	w.loaded = false
	w.playing = false
	w.offset = 0
}

// PlayPause toggles the transport. It does nothing until an artifact is loaded.
func (w *Widget) PlayPause() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return
	}

	w.settle()

	if w.playing {
		w.offset += w.now().Sub(w.started)
		w.playing = false

		return
	}

	if w.duration > 0 && w.offset >= w.duration {
		w.offset = 0
	}

	w.started = w.now()
	w.playing = true
}

// IsPlaying reports the current transport state
func (w *Widget) IsPlaying() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.settle()

	return w.playing
}

// Position returns the current playback position
func (w *Widget) Position() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.settle()

	return w.position()
}

// Duration returns the decoded length, or zero when unknown
func (w *Widget) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.duration
}

// URL returns the loaded artifact URL
func (w *Widget) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.url
}

// Peaks returns a copy of the drawn envelope
func (w *Widget) Peaks() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]float64, len(w.peaks))
	copy(out, w.peaks)

	return out
}

// position must be called with mu held
func (w *Widget) position() time.Duration {
	pos := w.offset
	if w.playing {
		pos += w.now().Sub(w.started)
	}

	return pos
}

// settle stops the transport once it runs past the end. Must be called with mu held.
func (w *Widget) settle() {
	if !w.playing || w.duration <= 0 {
		return
	}

	if w.position() >= w.duration {
		w.playing = false
		w.offset = w.duration
	}
}

// View renders the envelope into width columns, coloring the played part
func (w *Widget) View(width int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded || width <= 0 {
		return ""
	}

	w.settle()

	cols := Resample(w.peaks, width)

	played := -1
	if w.duration > 0 {
		played = int(float64(width) * float64(w.position()) / float64(w.duration))
	}

	var before, after strings.Builder

	cursor := ""

	for i, p := range cols {
		r := bars[int(math.Round(p*float64(len(bars)-1)))]

		switch {
		case i < played:
			before.WriteRune(r)
		case i == played && w.playing:
			cursor = string(r)
		default:
			after.WriteRune(r)
		}
	}

	return progressStyle.Render(before.String()) + cursorStyle.Render(cursor) + waveStyle.Render(after.String())
}

// Peaks reduces samples to buckets of peak absolute amplitude, scaled to [0, 1]
func Peaks(samples []float64, buckets int) []float64 {
	if buckets <= 0 || len(samples) == 0 {
		return nil
	}

	out := make([]float64, buckets)

	for i := range out {
		lo := i * len(samples) / buckets
		hi := (i + 1) * len(samples) / buckets

		for _, s := range samples[lo:hi] {
			out[i] = math.Max(out[i], math.Abs(s))
		}
	}

	return normalize(out)
}

// ByteEnergy approximates an envelope from raw bytes of an undecoded stream
func ByteEnergy(data []byte, buckets int) []float64 {
	if buckets <= 0 || len(data) == 0 {
		return nil
	}

	out := make([]float64, buckets)

	for i := range out {
		lo := i * len(data) / buckets
		hi := (i + 1) * len(data) / buckets

		if hi == lo {
			continue
		}

		var sum float64
		for _, b := range data[lo:hi] {
			sum += math.Abs(float64(b) - 128)
		}

		out[i] = sum / float64(hi-lo)
	}

	return normalize(out)
}

// Resample stretches or shrinks an envelope to n columns
func Resample(peaks []float64, n int) []float64 {
	out := make([]float64, n)
	if len(peaks) == 0 {
		return out
	}

	for i := range out {
		out[i] = peaks[i*len(peaks)/n]
	}

	return out
}

func normalize(v []float64) []float64 {
	var peak float64
	for _, x := range v {
		peak = math.Max(peak, x)
	}

	if peak == 0 {
		return v
	}

	for i := range v {
		v[i] /= peak
	}

	return v
}
