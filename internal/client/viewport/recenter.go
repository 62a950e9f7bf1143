// Package viewport decides which window of rows a scrolling grid needs and
// fetches it.
package viewport

import "math"

// Recenter reports whether the visible range [visibleFirst, visibleLast] is
// close enough to an edge of the loaded window to warrant a new one, and if so
// the start of that window. The visible indexes are clamped to the last row
// so a trailing placeholder row never counts.
func Recenter(visibleFirst, visibleLast, startIndex, windowSize, totalCount int) (int, bool) {
	if windowSize <= 0 {
		return startIndex, false
	}
	lastRow := max(0, totalCount-1)
	visibleFirst = min(visibleFirst, lastRow)
	visibleLast = min(visibleLast, lastRow)

	buffer := windowSize / 4
	end := startIndex + windowSize
	shiftUp := visibleFirst < startIndex+buffer && startIndex > 0
	shiftDown := visibleLast > end-buffer && end < totalCount
	if !shiftUp && !shiftDown {
		return startIndex, false
	}
	center := (visibleFirst + visibleLast) / 2
	newStart := min(max(center-windowSize/2, 0), max(0, totalCount-windowSize))
	return newStart, newStart != startIndex
}

// VisibleRange converts a scroll offset into the first and last row indexes
// at least partially visible, for rows of a fixed height.
func VisibleRange(scrollTop, viewportHeight, rowHeight float64) (first, last int) {
	if rowHeight <= 0 {
		return 0, 0
	}
	scrollTop = max(scrollTop, 0)
	first = int(math.Floor(scrollTop / rowHeight))
	last = int(math.Ceil((scrollTop+max(viewportHeight, 0))/rowHeight)) - 1
	return first, max(first, last)
}
