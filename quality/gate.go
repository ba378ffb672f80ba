package quality

import (
	"image"
	"math"
)

// Violation identifies a failed static quality criterion
type Violation int

const (
	NoFace Violation = iota + 1
	MultipleFaces
	TooSmall
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
	YawExceeded
	PitchExceeded
	RollExceeded
	TooClose
)

// HintHoldStill is reported when every static criterion passes but the
// capture has not fired yet
const HintHoldStill = "Hold still"

// defaultMaxHints is used when Thresholds.MaxHints is not set
const defaultMaxHints = 2

// Hint returns the corrective advice shown to the subject for the violation
func (v Violation) Hint() string {
	switch v {
	case NoFace:
		return "Show your face to the camera"
	case MultipleFaces:
		return "Only one face should be in view"
	case TooSmall:
		return "Move closer"
	case MoveLeft:
		return "Move left"
	case MoveRight:
		return "Move right"
	case MoveUp:
		return "Move up"
	case MoveDown:
		return "Move down"
	case YawExceeded:
		return "Look straight at the camera"
	case PitchExceeded:
		return "Keep your chin level"
	case RollExceeded:
		return "Keep your head upright"
	case TooClose:
		return "Move back"
	}
	return ""
}

// String returns the hint text of the violation
func (v Violation) String() string {
	return v.Hint()
}

// mirrored swaps horizontal direction violations
func (v Violation) mirrored() Violation {
	switch v {
	case MoveLeft:
		return MoveRight
	case MoveRight:
		return MoveLeft
	}
	return v
}

// Assessment is the outcome of evaluating one frame's detections
type Assessment struct {
	// Passed is true when all static criteria are met
	Passed bool
	// Violations lists every failed criterion in evaluation order
	Violations []Violation
	// Hints are the advisory texts for the first violations, or the hold
	// still message when passed.  Never empty.
	Hints []string
}

// Evaluate checks the detected faces against the thresholds for an upright
// frame of frameW x frameH pixels.  Exactly one face must be present; that
// face must be large enough, inside the frame margins, facing the camera and
// not so close it fills the frame.  All criteria are evaluated so every
// violation is reported.
func (t Thresholds) Evaluate(faces []Observation, frameW, frameH int) Assessment {

	var violations []Violation

	switch {
	case len(faces) == 0:
		violations = append(violations, NoFace)
	case len(faces) > 1:
		violations = append(violations, MultipleFaces)
	default:
		violations = t.evaluateFace(faces[0], frameW, frameH)
	}

	a := Assessment{
		Passed:     len(violations) == 0,
		Violations: violations,
	}

	a.Hints = t.hints(violations)

	return a
}

// Passes reports if the faces pass all static criteria
func (t Thresholds) Passes(faces []Observation, frameW, frameH int) bool {
	return t.Evaluate(faces, frameW, frameH).Passed
}

// evaluateFace runs the per face criteria
func (t Thresholds) evaluateFace(f Observation, frameW, frameH int) []Violation {

	var violations []Violation
	box := f.Box

	if box.Dx() < t.MinFaceSidePx || box.Dy() < t.MinFaceSidePx {
		violations = append(violations, TooSmall)
	}

	// box must sit inside the frame less the margin on all sides.  a face
	// crowding the left edge needs to move towards the right of the image
	m := t.FrameMarginPx

	left, right := box.Min.X < m, box.Max.X > frameW-m
	top, bottom := box.Min.Y < m, box.Max.Y > frameH-m

	// a box past both opposite edges can not be fixed by moving sideways
	spans := (left && right) || (top && bottom)

	if spans {
		violations = append(violations, TooClose)
	}

	if left && !right {
		violations = append(violations, t.direction(MoveRight))
	}
	if right && !left {
		violations = append(violations, t.direction(MoveLeft))
	}
	if top && !bottom {
		violations = append(violations, MoveDown)
	}
	if bottom && !top {
		violations = append(violations, MoveUp)
	}

	if math.Abs(f.Pose.Yaw) > t.MaxYaw {
		violations = append(violations, YawExceeded)
	}
	if math.Abs(f.Pose.Pitch) > t.MaxPitch {
		violations = append(violations, PitchExceeded)
	}
	if math.Abs(f.Pose.Roll) > t.MaxRoll {
		violations = append(violations, RollExceeded)
	}

	if !spans && AreaFraction(box, frameW, frameH) > t.MaxFaceAreaFraction {
		violations = append(violations, TooClose)
	}

	return violations
}

// direction adjusts a horizontal hint for a mirrored preview
func (t Thresholds) direction(v Violation) Violation {
	if t.MirrorHints {
		return v.mirrored()
	}
	return v
}

// hints returns the texts for the first MaxHints violations
func (t Thresholds) hints(violations []Violation) []string {

	if len(violations) == 0 {
		return []string{HintHoldStill}
	}

	n := t.MaxHints
	if n <= 0 {
		n = defaultMaxHints
	}

	if len(violations) < n {
		n = len(violations)
	}

	out := make([]string, 0, n)

	for _, v := range violations[:n] {
		out = append(out, v.Hint())
	}

	return out
}

// AreaFraction returns the fraction of a frame covered by box
func AreaFraction(box image.Rectangle, frameW, frameH int) float64 {
	if frameW <= 0 || frameH <= 0 {
		return 0
	}
	return float64(box.Dx()*box.Dy()) / float64(frameW*frameH)
}
