// ABOUTME: Tests for UploadManager filtering, removal, weights and undo
// ABOUTME: Checks the file list and slider projections stay aligned

package workflow

import (
	"encoding/json"
	"errors"
	"testing"

	"remix-studio/media"
)

func audio(name string) media.FileInfo {
	return media.FileInfo{Path: "/tmp/" + name, Name: name, MediaType: "audio/mpeg"}
}

func other(name, mediaType string) media.FileInfo {
	return media.FileInfo{Path: "/tmp/" + name, Name: name, MediaType: mediaType}
}

func names(rows []TrackRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}

	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestAddFiltersNonAudio(t *testing.T) {
	u := NewUploadManager(0.5, 10)

	accepted := u.Add([]media.FileInfo{other("notes.txt", "text/plain"), audio("beat.mp3")})
	if accepted != 1 {
		t.Fatalf("Add() accepted %d, want 1", accepted)
	}

	rows := u.Rows()
	if len(rows) != 1 || rows[0].Name != "beat.mp3" {
		t.Errorf("Rows() = %v, want only beat.mp3", rows)
	}

	if !CreateReady(u.Len()) {
		t.Error("Create gate should open with one audio track")
	}
}

func TestAddKeepsOrderAndDuplicates(t *testing.T) {
	u := NewUploadManager(0.5, 10)

	u.Add([]media.FileInfo{audio("a.mp3"), audio("b.mp3")})
	u.Add([]media.FileInfo{audio("a.mp3")})

	if got := names(u.Rows()); !equalStrings(got, []string{"a.mp3", "b.mp3", "a.mp3"}) {
		t.Errorf("Rows() = %v", got)
	}
}

func TestAddRejectsUnreadableFile(t *testing.T) {
	u := NewUploadManager(0.5, 10)

	broken := audio("gone.mp3")
	broken.Err = errors.New("missing")

	if u.Add([]media.FileInfo{broken}) != 0 {
		t.Error("File with probe error must not be accepted")
	}
}

func TestRemoveMiddleRenumbers(t *testing.T) {
	u := NewUploadManager(0.5, 10)
	u.Add([]media.FileInfo{audio("a.mp3"), audio("b.mp3"), audio("c.mp3"), audio("d.mp3")})

	if err := u.SetWeight(2, 0.9); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	if err := u.Remove(1); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	rows := u.Rows()
	if got := names(rows); !equalStrings(got, []string{"a.mp3", "c.mp3", "d.mp3"}) {
		t.Fatalf("Rows() = %v", got)
	}

	for i, r := range rows {
		if r.Position != i {
			t.Errorf("Row %d has position %d", i, r.Position)
		}
	}

	// The weight moved with its track
	weights := u.Weights()
	if len(weights) != 3 || weights[1] != 0.9 {
		t.Errorf("Weights() = %v, want c.mp3 at 0.9 in position 1", weights)
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	u := NewUploadManager(0.5, 10)
	u.Add([]media.FileInfo{audio("a.mp3")})

	for _, pos := range []int{-1, 1, 5} {
		if err := u.Remove(pos); !errors.Is(err, ErrPosition) {
			t.Errorf("Remove(%d) error = %v, want ErrPosition", pos, err)
		}
	}

	if u.Len() != 1 {
		t.Errorf("Len() = %d after failed removals", u.Len())
	}
}

func TestWeights(t *testing.T) {
	tests := []struct {
		name string
		set  float64
		want float64
	}{
		{"inside range", 0.3, 0.3},
		{"below zero", -0.2, 0},
		{"above one", 1.7, 1},
		{"upper bound", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUploadManager(0.5, 10)
			u.Add([]media.FileInfo{audio("a.mp3")})

			if err := u.SetWeight(0, tt.set); err != nil {
				t.Fatalf("SetWeight() error = %v", err)
			}

			if got := u.Weights()[0]; got != tt.want {
				t.Errorf("Weight = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultWeightAndNudge(t *testing.T) {
	u := NewUploadManager(0.5, 10)
	u.Add([]media.FileInfo{audio("a.mp3")})

	if got := u.Rows()[0]; got.Weight != 0.5 || got.Percent != 50 {
		t.Errorf("New track row = %+v, want weight 0.5", got)
	}

	for range 20 {
		_ = u.Nudge(0, 0.05)
	}

	if got := u.Weights()[0]; got != 1 {
		t.Errorf("Nudged weight = %v, want clamped to 1", got)
	}
}

func TestNudgedWeightsSerializeCleanly(t *testing.T) {
	u := NewUploadManager(0.5, 10)
	u.Add([]media.FileInfo{audio("a.mp3"), audio("b.mp3")})

	for range 4 {
		_ = u.Nudge(0, -0.05)
		_ = u.Nudge(1, 0.05)
	}

	got, err := json.Marshal(u.Weights())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if string(got) != "[0.3,0.7]" {
		t.Errorf("mix_ratios = %s, want [0.3,0.7]", got)
	}

	rows := u.Rows()
	if rows[0].Percent != 30 || rows[1].Percent != 70 {
		t.Errorf("Percents = %d, %d, want 30, 70", rows[0].Percent, rows[1].Percent)
	}
}

func TestWeightsRoundToWholePercent(t *testing.T) {
	tests := []struct {
		set  float64
		want float64
	}{
		{0.123, 0.12},
		{0.555, 0.56},
		{1.0 / 3, 0.33},
		{0.999, 1},
	}

	for _, tt := range tests {
		u := NewUploadManager(0.5, 10)
		u.Add([]media.FileInfo{audio("a.mp3")})

		_ = u.SetWeight(0, tt.set)

		if got := u.Weights()[0]; got != tt.want {
			t.Errorf("SetWeight(%v) stored %v, want %v", tt.set, got, tt.want)
		}
	}

	u := NewUploadManager(0.333, 10)
	u.Add([]media.FileInfo{audio("a.mp3")})

	if got := u.Weights()[0]; got != 0.33 {
		t.Errorf("Default weight = %v, want 0.33", got)
	}
}

func TestUndoRedoRemoval(t *testing.T) {
	u := NewUploadManager(0.5, 10)
	u.Add([]media.FileInfo{audio("a.mp3"), audio("b.mp3"), audio("c.mp3")})

	u.MoveCursor(1)

	if err := u.Remove(u.Cursor()); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if !u.Undo() {
		t.Fatal("Undo() should succeed")
	}

	if got := names(u.Rows()); !equalStrings(got, []string{"a.mp3", "b.mp3", "c.mp3"}) {
		t.Errorf("After undo Rows() = %v", got)
	}

	if u.Cursor() != 1 {
		t.Errorf("Cursor after undo = %d, want 1", u.Cursor())
	}

	if !u.Redo() {
		t.Fatal("Redo() should succeed")
	}

	if got := names(u.Rows()); !equalStrings(got, []string{"a.mp3", "c.mp3"}) {
		t.Errorf("After redo Rows() = %v", got)
	}

	// Undo past the add empties the list
	u.Undo()
	u.Undo()

	if u.Len() != 0 {
		t.Errorf("Len() = %d after undoing the add", u.Len())
	}

	if u.Undo() {
		t.Error("Nothing left to undo")
	}
}

func TestCursorClamped(t *testing.T) {
	u := NewUploadManager(0.5, 10)
	u.Add([]media.FileInfo{audio("a.mp3"), audio("b.mp3")})

	u.MoveCursor(10)

	if u.Cursor() != 1 {
		t.Errorf("Cursor = %d, want 1", u.Cursor())
	}

	_ = u.Remove(1)

	if u.Cursor() != 0 {
		t.Errorf("Cursor after removing last row = %d, want 0", u.Cursor())
	}

	if !u.Rows()[0].Selected {
		t.Error("Row under the cursor should be marked selected")
	}
}

func TestUndoManagerBounded(t *testing.T) {
	um := NewUndoManager(2)

	for i := range 5 {
		um.Push(UploadState{Cursor: i})
	}

	if um.UndoSize() != 2 {
		t.Fatalf("UndoSize() = %d, want 2", um.UndoSize())
	}

	state, ok := um.Undo(UploadState{Cursor: 99})
	if !ok || state.Cursor != 4 {
		t.Errorf("Undo() = %+v, %v; want cursor 4", state, ok)
	}

	if um.RedoSize() != 1 {
		t.Errorf("RedoSize() = %d, want 1", um.RedoSize())
	}

	um.Push(UploadState{})

	if um.RedoSize() != 0 {
		t.Error("Push must clear the redo stack")
	}

	um.Clear()

	if um.UndoSize() != 0 {
		t.Error("Clear must empty the undo stack")
	}
}

func TestGates(t *testing.T) {
	t1, pop := "t1", "pop"

	tests := []struct {
		name  string
		state SelectionState
		want  bool
	}{
		{"nothing chosen", SelectionState{}, false},
		{"track only", SelectionState{SelectedTrackID: &t1}, false},
		{"genre only", SelectionState{SelectedGenre: &pop}, false},
		{"track and genre", SelectionState{SelectedTrackID: &t1, SelectedGenre: &pop}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemixReady(tt.state); got != tt.want {
				t.Errorf("RemixReady() = %v, want %v", got, tt.want)
			}
		})
	}

	if CreateReady(0) {
		t.Error("CreateReady(0) should be false")
	}

	if !CreateReady(1) {
		t.Error("CreateReady(1) should be true")
	}
}

func TestGenreSelector(t *testing.T) {
	g := NewGenreSelector([]string{"Rock", "Jazz", "Pop"})

	if _, ok := g.Selected(); ok {
		t.Fatal("No genre should be selected initially")
	}

	if err := g.Select("jazz"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if got, _ := g.Selected(); got != "Jazz" {
		t.Errorf("Selected = %q, want Jazz", got)
	}

	if err := g.Select("polka"); !errors.Is(err, ErrUnknownGenre) {
		t.Errorf("Select(unknown) error = %v", err)
	}

	if got, _ := g.Selected(); got != "Jazz" {
		t.Errorf("Unknown genre changed selection to %q", got)
	}

	_ = g.SelectAt(2)

	if got, _ := g.Selected(); got != "Pop" {
		t.Errorf("Selected = %q, want Pop", got)
	}

	g.SetGenres([]string{"POP", "Lo-Fi"})

	if got, _ := g.Selected(); got != "POP" {
		t.Errorf("Selection after list refresh = %q, want POP", got)
	}
}

func TestGenreSelectionSurvivesListWithoutIt(t *testing.T) {
	g := NewGenreSelector([]string{"rock", "pop"})
	_ = g.Select("pop")

	g.SetGenres([]string{"Rock", "Jazz"})

	if got, ok := g.Selected(); !ok || got != "pop" {
		t.Errorf("Selected = %q, %v, want pop kept", got, ok)
	}

	if err := g.Select("jazz"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if got, _ := g.Selected(); got != "Jazz" {
		t.Errorf("Selected = %q, want Jazz", got)
	}
}
