package quality

import "time"

// BestShotGate debounces the combined gate result.  It fires once the
// condition has held continuously for the stable duration; any failing
// update discards the accumulated time.
type BestShotGate struct {
	stable  time.Duration
	started bool
	start   time.Time
}

// NewBestShotGate returns a gate that fires after stable of continuous
// passing updates
func NewBestShotGate(stable time.Duration) *BestShotGate {
	return &BestShotGate{stable: stable}
}

// Update records the gate condition at time now and reports whether the
// capture should fire
func (g *BestShotGate) Update(ok bool, now time.Time) bool {

	if !ok {
		g.Reset()
		return false
	}

	if !g.started {
		g.started = true
		g.start = now
	}

	return now.Sub(g.start) >= g.stable
}

// Reset clears the start marker so the full dwell must accumulate again
func (g *BestShotGate) Reset() {
	g.started = false
	g.start = time.Time{}
}

// Held returns how long the condition has held as of now
func (g *BestShotGate) Held(now time.Time) time.Duration {
	if !g.started {
		return 0
	}
	return now.Sub(g.start)
}
