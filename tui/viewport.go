// ABOUTME: Scrolling window over the result, genre and upload lists
// ABOUTME: Keeps the cursor in the middle of the window once the list is long enough

package tui

// ViewportManager computes which slice of a list is on screen
type ViewportManager struct {
	height     int // visible rows
	cursorPos  int
	totalItems int
}

// NewViewportManager creates a new viewport manager
func NewViewportManager(height, cursorPos, totalItems int) *ViewportManager {
	return &ViewportManager{
		height:     height,
		cursorPos:  cursorPos,
		totalItems: totalItems,
	}
}

// CalculateOffset returns the index of the first visible row.
// The cursor moves freely near the ends of the list and stays centred in between.
func (vm *ViewportManager) CalculateOffset() int {
	if vm.totalItems <= vm.height || vm.height < 1 {
		return 0
	}

	middle := vm.height / 2

	if vm.cursorPos < middle {
		return 0
	}

	maxOffset := vm.totalItems - vm.height
	if offset := vm.cursorPos - middle; offset < maxOffset {
		return offset
	}

	return maxOffset
}

// Window returns the half-open range [start, end) of rows to draw
func (vm *ViewportManager) Window() (int, int) {
	start := vm.CalculateOffset()

	end := start + vm.height
	if end > vm.totalItems || vm.height < 1 {
		end = vm.totalItems
	}

	return start, end
}
