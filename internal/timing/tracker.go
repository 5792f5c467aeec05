package timing

import (
	"sort"

	"karolbroda.com/lyrelay/internal/lyrics"
)

const DefaultAdvanceFraction = 0.4

// LineTracker picks the active lyric line for a position. Moving forward
// waits until the current line is Fraction of the way to the next one;
// moving backward is immediate.
type LineTracker struct {
	Fraction float64

	retained int
	started  bool
}

func NewLineTracker(fraction float64) *LineTracker {
	if fraction < 0 || fraction > 1 {
		fraction = DefaultAdvanceFraction
	}
	return &LineTracker{Fraction: fraction}
}

// Candidate returns the greatest index whose time is at or before position,
// or -1 when position precedes every line.
func Candidate(lines []lyrics.Line, position float64) int {
	n := sort.Search(len(lines), func(i int) bool {
		return lines[i].TimeSeconds > position
	})
	return n - 1
}

// Resolve returns the active line index, or -1 for none.
func (t *LineTracker) Resolve(lines []lyrics.Line, position float64) int {
	if len(lines) == 0 {
		return -1
	}

	candidate := Candidate(lines, position)

	if !t.started || t.retained >= len(lines) {
		t.started = true
		t.retained = candidate
		return t.retained
	}

	switch {
	case candidate < t.retained:
		t.retained = candidate
	case candidate > t.retained:
		if position >= t.threshold(lines) {
			t.retained = candidate
		}
	}
	return t.retained
}

func (t *LineTracker) threshold(lines []lyrics.Line) float64 {
	r := t.retained
	current := 0.0
	if r >= 0 {
		current = lines[r].TimeSeconds
	}
	next := lines[r+1].TimeSeconds
	return current + t.Fraction*(next-current)
}

// Current is the last index returned by Resolve.
func (t *LineTracker) Current() int {
	if !t.started {
		return -1
	}
	return t.retained
}

func (t *LineTracker) Reset() {
	t.started = false
	t.retained = 0
}
