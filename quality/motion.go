package quality

import (
	"math"
	"time"
)

// DefaultDeadBand is the angular velocity in degrees per second below which
// head movement is treated as detector jitter
const DefaultDeadBand = 8.0

// MotionGate tracks the head pose of the current subject and reports when
// the head has stopped moving.  Angular velocity is smoothed with an
// exponential moving average and must stay under the threshold for the
// stable duration.  Only a single subject is tracked; a change of tracking
// ID starts over.
type MotionGate struct {
	// threshold is the smoothed velocity in deg/s considered still
	threshold float64
	// stable is how long the head must remain still
	stable time.Duration
	// alpha is the EMA weight of the newest sample
	alpha float64
	// deadBand is subtracted from raw velocity before smoothing
	deadBand float64

	// current subject state
	hasSample   bool
	trackID     int
	last        Pose
	lastTS      time.Time
	velocity    float64
	stillSince  time.Time
	stillMarked bool
}

// NewMotionGate returns a motion gate.  Velocity threshold is in degrees per
// second, alpha in (0,1] is the EMA weight of the newest sample.
func NewMotionGate(velThreshold float64, stable time.Duration, alpha float64) *MotionGate {
	return &MotionGate{
		threshold: velThreshold,
		stable:    stable,
		alpha:     alpha,
		deadBand:  DefaultDeadBand,
	}
}

// SetDeadBand changes the velocity dead band in degrees per second
func (g *MotionGate) SetDeadBand(degPerSec float64) {
	g.deadBand = math.Max(0, degPerSec)
}

// Reset clears all subject state
func (g *MotionGate) Reset() {
	g.hasSample = false
	g.trackID = 0
	g.last = Pose{}
	g.lastTS = time.Time{}
	g.velocity = 0
	g.stillSince = time.Time{}
	g.stillMarked = false
}

// Velocity returns the current smoothed angular velocity in deg/s
func (g *MotionGate) Velocity() float64 {
	return g.velocity
}

// Update feeds the pose of the subject with tracking ID trackID observed at
// time now, returning true once the head has been still for the stable
// duration
func (g *MotionGate) Update(trackID int, pose Pose, now time.Time) bool {

	if !g.hasSample || trackID != g.trackID {
		g.Reset()
		g.hasSample = true
		g.trackID = trackID
		g.last = pose
		g.lastTS = now
		// soft start at the threshold so a newly acquired subject must show
		// at least one slow sample before counting as still
		g.velocity = g.threshold
		return false
	}

	dt := now.Sub(g.lastTS)
	if dt < time.Millisecond {
		dt = time.Millisecond
	}

	// the largest single axis change is used rather than the sum so small
	// jitter on all three axes does not add up to apparent motion
	delta := math.Max(math.Abs(pose.Yaw-g.last.Yaw),
		math.Max(math.Abs(pose.Pitch-g.last.Pitch), math.Abs(pose.Roll-g.last.Roll)))

	raw := delta / dt.Seconds()
	vel := math.Max(0, raw-g.deadBand)

	g.velocity = g.alpha*vel + (1-g.alpha)*g.velocity
	g.last = pose
	g.lastTS = now

	if g.velocity > g.threshold {
		g.stillMarked = false
		g.stillSince = time.Time{}
		return false
	}

	if !g.stillMarked {
		g.stillMarked = true
		g.stillSince = now
	}

	return now.Sub(g.stillSince) >= g.stable
}
