/*
Package quality contains the gates a live face must pass before a capture
is taken: a stateless evaluator for pose, size and framing, a stateful
head motion filter, a best shot debouncer and a Laplacian variance
sharpness estimator.
*/
package quality

import "image"

// Thresholds are the static limits a single detected face is evaluated
// against
type Thresholds struct {
	// MaxYaw, MaxPitch and MaxRoll are the maximum absolute head angles in
	// degrees
	MaxYaw   float64
	MaxPitch float64
	MaxRoll  float64
	// MinFaceSidePx is the minimum width and height of the face bounding box
	MinFaceSidePx int
	// FrameMarginPx is the distance the bounding box must keep from every
	// edge of the frame
	FrameMarginPx int
	// MaxFaceAreaFraction is the largest fraction of the frame area the
	// bounding box may cover
	MaxFaceAreaFraction float64
	// MaxHints is the number of corrective hints reported at once
	MaxHints int
	// MirrorHints swaps left and right in directional hints for a preview
	// shown mirrored to the subject
	MirrorHints bool
}

// Pose holds head Euler angles in degrees
type Pose struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// Observation is a detected face expressed in upright frame coordinates
type Observation struct {
	Box  image.Rectangle
	Pose Pose
}
