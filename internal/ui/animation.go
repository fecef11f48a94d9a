package ui

import (
	"math"
)

// scrollTicks is how many ticks an automatic scroll takes to settle.
const scrollTicks = 6

// AnimState eases the viewport between scroll offsets and fades the glow
// on a newly active line.
type AnimState struct {
	from     float64
	to       float64
	progress float64
	ticks    int

	Glow  float64
	Phase float64
}

func (a *AnimState) Reset() {
	*a = AnimState{progress: 1}
}

// Start begins an eased move from one offset to another.
func (a *AnimState) Start(from float64, to float64, ticks int) {
	if ticks <= 0 {
		ticks = scrollTicks
	}
	a.from = from
	a.to = to
	a.progress = 0
	a.ticks = ticks
}

// Cancel stops the move where it is. User scrolling wins over an
// animation in flight.
func (a *AnimState) Cancel() {
	a.progress = 1
	a.from = a.to
}

func (a *AnimState) Moving() bool {
	return a.progress < 1 && a.ticks > 0
}

// Step advances one tick and returns the eased offset.
func (a *AnimState) Step(tickCount int) float64 {
	a.Phase = float64(tickCount) * 0.05

	if a.Glow > 0 {
		a.Glow *= 0.85
		if a.Glow < 0.01 {
			a.Glow = 0
		}
	}

	if !a.Moving() {
		return a.to
	}

	a.progress += 1.0 / float64(a.ticks)
	if a.progress > 1 {
		a.progress = 1
	}
	return lerp(a.from, a.to, easeOutCubic(a.progress))
}

// Flash lights up a line that just became active.
func (a *AnimState) Flash() {
	a.Glow = 1
}

// Pulse oscillates between 0 and 1 for the idle and resync indicators.
func (a *AnimState) Pulse() float64 {
	return (math.Sin(a.Phase*4) + 1) / 2
}

func easeOutCubic(t float64) float64 {
	if t >= 1 {
		return 1
	}
	if t <= 0 {
		return 0
	}
	return 1 - math.Pow(1-t, 3)
}

func lerp(a float64, b float64, t float64) float64 {
	return a + (b-a)*t
}
