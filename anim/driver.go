package anim

import (
	"context"
	"time"
)

// Mode selects how the driver turns frames into phase.
type Mode int

const (
	// ModeFrame adds one step per frame, so speed follows the frame rate.
	ModeFrame Mode = iota
	// ModeElapsed derives phase from wall-clock time at the target rate, so
	// dropped frames do not slow the animation down.
	ModeElapsed
)

// ParseMode maps a config value to a Mode. Unknown values mean ModeFrame.
func ParseMode(s string) Mode {
	if s == "elapsed" {
		return ModeElapsed
	}
	return ModeFrame
}

// Animated is the node state the driver mutates.
type Animated interface {
	SetPhase(p Phase)
	MarkDirty()
}

// Driver advances one node's phase once per display frame.
type Driver struct {
	step      float64
	targetFPS int
	mode      Mode
	now       func() time.Time
}

// NewDriver returns a driver stepping by step at targetFPS frames per second.
func NewDriver(step float64, targetFPS int, mode Mode) *Driver {
	if targetFPS <= 0 {
		targetFPS = 60
	}
	return &Driver{
		step:      step,
		targetFPS: targetFPS,
		mode:      mode,
		now:       time.Now,
	}
}

// FrameInterval is the time between two ticks.
func (d *Driver) FrameInterval() time.Duration {
	return time.Second / time.Duration(d.targetFPS)
}

// phaseFor computes the phase for the given frame count and elapsed time.
func (d *Driver) phaseFor(frames uint64, elapsed time.Duration) Phase {
	if d.mode == ModeElapsed {
		return Wrap(elapsed.Seconds() * d.step * float64(d.targetFPS))
	}
	return PhaseAt(frames, d.step)
}

// Purpose: Run the node's animation loop until ctx is cancelled.
// Key aspects: The loop only computes phases; queue must run the closure on
// the goroutine that owns node, so node state is never touched concurrently.
// Upstream: ui.Application on node creation.
// Downstream: queue (frame scheduler), Animated.SetPhase, Animated.MarkDirty.
func (d *Driver) Start(ctx context.Context, node Animated, queue func(func())) {
	if d == nil || node == nil || queue == nil {
		return
	}
	go d.run(ctx, node, queue)
}

func (d *Driver) run(ctx context.Context, node Animated, queue func(func())) {
	ticker := time.NewTicker(d.FrameInterval())
	defer ticker.Stop()

	started := d.now()
	var frames uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		frames++
		p := d.phaseFor(frames, d.now().Sub(started))
		queue(func() {
			if ctx.Err() != nil {
				return
			}
			node.SetPhase(p)
			node.MarkDirty()
		})
	}
}
