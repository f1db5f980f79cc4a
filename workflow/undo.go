// ABOUTME: Undo/redo history for upload list edits
// ABOUTME: Keeps bounded stacks of track list snapshots

package workflow

// UploadState captures a snapshot of the upload list
type UploadState struct {
	Tracks []UploadedTrack
	Cursor int
}

func (s UploadState) clone() UploadState {
	return UploadState{Tracks: append([]UploadedTrack(nil), s.Tracks...), Cursor: s.Cursor}
}

// UndoManager manages undo/redo stacks with a maximum size
type UndoManager struct {
	undoStack []UploadState
	redoStack []UploadState
	maxSize   int
}

// NewUndoManager creates an undo manager keeping at most maxSize states per stack
func NewUndoManager(maxSize int) *UndoManager {
	if maxSize <= 0 {
		maxSize = 1
	}

	return &UndoManager{maxSize: maxSize}
}

// Push saves a state before an edit and clears the redo stack
func (um *UndoManager) Push(state UploadState) {
	um.undoStack = pushBounded(um.undoStack, state.clone(), um.maxSize)
	um.redoStack = nil
}

// Undo returns the previous state, saving current for redo
func (um *UndoManager) Undo(current UploadState) (UploadState, bool) {
	if len(um.undoStack) == 0 {
		return UploadState{}, false
	}

	um.redoStack = pushBounded(um.redoStack, current.clone(), um.maxSize)

	state := um.undoStack[len(um.undoStack)-1]
	um.undoStack = um.undoStack[:len(um.undoStack)-1]

	return state, true
}

// Redo returns the next state, saving current for undo
func (um *UndoManager) Redo(current UploadState) (UploadState, bool) {
	if len(um.redoStack) == 0 {
		return UploadState{}, false
	}

	um.undoStack = pushBounded(um.undoStack, current.clone(), um.maxSize)

	state := um.redoStack[len(um.redoStack)-1]
	um.redoStack = um.redoStack[:len(um.redoStack)-1]

	return state, true
}

// UndoSize returns the number of states available to undo
func (um *UndoManager) UndoSize() int {
	return len(um.undoStack)
}

// RedoSize returns the number of states available to redo
func (um *UndoManager) RedoSize() int {
	return len(um.redoStack)
}

// Clear empties both stacks
func (um *UndoManager) Clear() {
	um.undoStack = nil
	um.redoStack = nil
}

func pushBounded(stack []UploadState, state UploadState, maxSize int) []UploadState {
	stack = append(stack, state)
	if len(stack) > maxSize {
		stack = stack[len(stack)-maxSize:]
	}

	return stack
}
