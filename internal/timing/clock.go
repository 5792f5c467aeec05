package timing

import (
	"sync"
	"time"
)

// Sample is one playback progress report.
type Sample struct {
	ProgressMs int64
	ObservedAt time.Time
	Playing    bool
}

// Clock extrapolates the playback position from the last accepted sample.
type Clock struct {
	// JitterTolerance rejects same-track regressions smaller than itself as
	// out-of-order reports. Zero accepts every regression as a seek.
	JitterTolerance time.Duration

	mu       sync.RWMutex
	trackKey string
	anchor   Sample
	anchored bool
}

// Observe offers a sample for trackKey and reports whether it became the
// new anchor.
func (c *Clock) Observe(trackKey string, s Sample) bool {
	if s.ProgressMs < 0 {
		s.ProgressMs = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a play state change always lands, even with a stale position
	if c.anchored && trackKey == c.trackKey && s.Playing == c.anchor.Playing &&
		s.ProgressMs < c.anchor.ProgressMs {
		regression := time.Duration(c.anchor.ProgressMs-s.ProgressMs) * time.Millisecond
		if regression < c.JitterTolerance {
			return false
		}
	}

	c.trackKey = trackKey
	c.anchor = s
	c.anchored = true
	return true
}

// PositionSeconds is the estimated playback position at now.
func (c *Clock) PositionSeconds(now time.Time) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.anchored {
		return 0
	}

	base := float64(c.anchor.ProgressMs) / 1000
	if !c.anchor.Playing {
		return base
	}
	elapsed := now.Sub(c.anchor.ObservedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return base + elapsed
}

func (c *Clock) Anchor() (string, Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trackKey, c.anchor, c.anchored
}

func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackKey = ""
	c.anchor = Sample{}
	c.anchored = false
}
