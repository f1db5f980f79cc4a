// ABOUTME: Readiness predicates that enable or disable each mode's submit action
// ABOUTME: Pure functions of the current selection and upload state

package workflow

// SelectionState is the remix mode choice; nil means not chosen
type SelectionState struct {
	SelectedTrackID *string
	SelectedGenre   *string
}

// RemixReady reports whether both a track and a genre are chosen
func RemixReady(s SelectionState) bool {
	return s.SelectedTrackID != nil && s.SelectedGenre != nil
}

// CreateReady reports whether at least one track is uploaded
func CreateReady(trackCount int) bool {
	return trackCount >= 1
}
