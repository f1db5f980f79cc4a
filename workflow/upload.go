// ABOUTME: UploadManager: ordered list of accepted audio files with per-track mix weights
// ABOUTME: The file list and the weight sliders are both projections of this one list

package workflow

import (
	"fmt"
	"math"

	"remix-studio/media"
)

// DefaultMixWeight is the weight a newly added track starts with
const DefaultMixWeight = 0.5

// weightSteps is the slider resolution: weights are whole percentages
const weightSteps = 100

// UploadedTrack is one accepted file and its mix weight in [0, 1]
type UploadedTrack struct {
	File        media.FileInfo
	DisplayName string
	MixWeight   float64
}

// TrackRow is the rendered view of one track, shared by the file list and the sliders
type TrackRow struct {
	Position int
	Name     string
	Weight   float64
	Percent  int
	Selected bool
}

// UploadManager owns the ordered track list
type UploadManager struct {
	tracks        []UploadedTrack
	cursor        int
	defaultWeight float64
	undo          *UndoManager
}

// NewUploadManager creates an empty list; defaultWeight outside [0, 1] falls back to 0.5
func NewUploadManager(defaultWeight float64, history int) *UploadManager {
	if defaultWeight < 0 || defaultWeight > 1 || math.IsNaN(defaultWeight) {
		defaultWeight = DefaultMixWeight
	}

	defaultWeight = math.Round(defaultWeight*weightSteps) / weightSteps

	return &UploadManager{defaultWeight: defaultWeight, undo: NewUndoManager(history)}
}

// Add appends the audio files of batch in order and silently drops everything else.
// It returns how many files were accepted.
func (u *UploadManager) Add(batch []media.FileInfo) int {
	var accepted []UploadedTrack

	for _, f := range batch {
		if !f.IsAudio() {
			continue
		}

		accepted = append(accepted, UploadedTrack{File: f, DisplayName: f.Label(), MixWeight: u.defaultWeight})
	}

	if len(accepted) == 0 {
		return 0
	}

	u.undo.Push(u.state())
	u.tracks = append(u.tracks, accepted...)

	return len(accepted)
}

// Remove deletes the track at pos; later tracks move up one position
func (u *UploadManager) Remove(pos int) error {
	if err := u.check(pos); err != nil {
		return err
	}

	u.undo.Push(u.state())
	u.tracks = append(u.tracks[:pos:pos], u.tracks[pos+1:]...)
	u.clampCursor()

	return nil
}

// SetWeight sets the mix weight at pos, clamped to [0, 1] at slider resolution (1%)
func (u *UploadManager) SetWeight(pos int, w float64) error {
	if err := u.check(pos); err != nil {
		return err
	}

	u.tracks[pos].MixWeight = math.Round(clamp01(w)*weightSteps) / weightSteps

	return nil
}

// Nudge moves the weight at pos by delta, clamped to [0, 1]
func (u *UploadManager) Nudge(pos int, delta float64) error {
	if err := u.check(pos); err != nil {
		return err
	}

	return u.SetWeight(pos, u.tracks[pos].MixWeight+delta)
}

// Undo reverts the last add or remove
func (u *UploadManager) Undo() bool {
	state, ok := u.undo.Undo(u.state())
	if ok {
		u.restore(state)
	}

	return ok
}

// Redo reapplies the last undone add or remove
func (u *UploadManager) Redo() bool {
	state, ok := u.undo.Redo(u.state())
	if ok {
		u.restore(state)
	}

	return ok
}

// Len returns the number of tracks
func (u *UploadManager) Len() int {
	return len(u.tracks)
}

// Tracks returns a copy of the ordered list
func (u *UploadManager) Tracks() []UploadedTrack {
	return append([]UploadedTrack(nil), u.tracks...)
}

// Weights returns the mix weights in track order
func (u *UploadManager) Weights() []float64 {
	weights := make([]float64, len(u.tracks))
	for i, t := range u.tracks {
		weights[i] = t.MixWeight
	}

	return weights
}

// Rows projects the list for display
func (u *UploadManager) Rows() []TrackRow {
	rows := make([]TrackRow, len(u.tracks))
	for i, t := range u.tracks {
		rows[i] = TrackRow{
			Position: i,
			Name:     t.DisplayName,
			Weight:   t.MixWeight,
			Percent:  int(math.Round(t.MixWeight * 100)),
			Selected: i == u.cursor,
		}
	}

	return rows
}

// Cursor returns the highlighted position
func (u *UploadManager) Cursor() int {
	return u.cursor
}

// MoveCursor moves the highlight by delta within the list
func (u *UploadManager) MoveCursor(delta int) {
	u.cursor += delta
	u.clampCursor()
}

func (u *UploadManager) check(pos int) error {
	if pos < 0 || pos >= len(u.tracks) {
		return fmt.Errorf("%w: %d of %d", ErrPosition, pos, len(u.tracks))
	}

	return nil
}

func (u *UploadManager) state() UploadState {
	return UploadState{Tracks: u.tracks, Cursor: u.cursor}
}

func (u *UploadManager) restore(state UploadState) {
	u.tracks = state.Tracks
	u.cursor = state.Cursor
	u.clampCursor()
}

func (u *UploadManager) clampCursor() {
	if u.cursor >= len(u.tracks) {
		u.cursor = len(u.tracks) - 1
	}

	if u.cursor < 0 {
		u.cursor = 0
	}
}

func clamp01(w float64) float64 {
	if math.IsNaN(w) {
		return 0
	}

	return math.Max(0, math.Min(1, w))
}
