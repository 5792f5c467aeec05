package ui

import (
	"math"
)

type AnimState struct {
	TransitionProgress float64
	CharReveal         float64
	GlowIntensity      float64
	ShimmerPhase       float64
}

func (a *AnimState) Reset() {
	*a = AnimState{}
}

func (a *AnimState) Update(tickCount int, newLine bool, transitionTicks int) {
	if transitionTicks <= 0 {
		transitionTicks = 18
	}

	if newLine {
		a.TransitionProgress = 0
		a.CharReveal = 0
		a.GlowIntensity = 1.0
	}

	a.TransitionProgress = math.Min(1, a.TransitionProgress+1/float64(transitionTicks))
	a.CharReveal = math.Min(1, a.CharReveal+0.08)

	a.GlowIntensity *= 0.85
	if a.GlowIntensity < 0.01 {
		a.GlowIntensity = 0
	}

	a.ShimmerPhase = float64(tickCount) * 0.05
}

// SlideOffset is the eased progress of the current line transition.
func (a *AnimState) SlideOffset() float64 {
	return easeOutCubic(a.TransitionProgress)
}

func easeOutCubic(t float64) float64 {
	t = clamp(t, 0, 1)
	return 1 - math.Pow(1-t, 3)
}

func lerp(a float64, b float64, t float64) float64 {
	return a + (b-a)*t
}

func clamp(val float64, lo float64, hi float64) float64 {
	return math.Max(lo, math.Min(val, hi))
}
