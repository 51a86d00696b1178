package orchestration

import "time"

// turnTimer is the single silence timer of an agent. Cancelling bumps the
// generation, so a callback that already left the timer turns into a no-op
// once it reaches the event loop.
type turnTimer struct {
	threshold  time.Duration
	timer      *time.Timer
	generation uint64
}

// arm cancels any outstanding timer and schedules fire with the generation
// of the new one.
func (t *turnTimer) arm(fire func(generation uint64)) {
	t.cancel()
	generation := t.generation
	t.timer = time.AfterFunc(t.threshold, func() { fire(generation) })
}

func (t *turnTimer) cancel() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// claim reports whether generation belongs to the outstanding timer and
// releases it if so.
func (t *turnTimer) claim(generation uint64) bool {
	if generation != t.generation || t.timer == nil {
		return false
	}
	t.timer = nil
	return true
}

func (t *turnTimer) armed() bool {
	return t.timer != nil
}
