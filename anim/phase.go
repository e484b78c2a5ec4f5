// Package anim drives the per-node phase clock behind the fluid row overlay.
package anim

import "math"

// Phase is a position within the repeating animation cycle, always in [0,1).
type Phase float64

// Wrap folds any value into [0,1).
func Wrap(v float64) Phase {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f := v - math.Floor(v)
	if f >= 1 {
		f = 0
	}
	return Phase(f)
}

// Advance moves p forward by step and wraps.
func (p Phase) Advance(step float64) Phase {
	return Wrap(float64(p) + step)
}

// Stagger returns the phase of row index, offset so rows drift out of sync.
func (p Phase) Stagger(index int, offset float64) Phase {
	return Wrap(float64(p) + float64(index)*offset)
}

// PhaseAt is the phase after frames steps of size step, computed from the
// frame count so long-running nodes accumulate no rounding drift.
func PhaseAt(frames uint64, step float64) Phase {
	return Wrap(float64(frames) * step)
}
