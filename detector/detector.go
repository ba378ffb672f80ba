/*
Package detector finds faces in upright frames and reports their bounding
box, head pose and a tracking ID that stays stable for the same subject
across consecutive frames.
*/
package detector

import (
	"context"
	"image"

	"github.com/swdee/go-facecapture/quality"
	"github.com/swdee/go-facecapture/tracker"
	"gocv.io/x/gocv"
)

// NoTrackID is the TrackID of a face the detector could not associate with
// a tracked subject
const NoTrackID = tracker.NoTrackID

// Landmark indexes into Face.Landmarks, named from the subject's point of
// view so the subject's right eye appears on the left of the image
const (
	RightEye = iota
	LeftEye
	NoseTip
	RightMouth
	LeftMouth
)

// Face is a single detection in upright frame coordinates
type Face struct {
	// Box is the face bounding box
	Box image.Rectangle
	// Yaw, Pitch and Roll are the head Euler angles in degrees
	Yaw   float64
	Pitch float64
	Roll  float64
	// TrackID identifies the subject across frames, NoTrackID when unknown
	TrackID int
	// Landmarks are the five facial keypoints
	Landmarks [5]image.Point
	// Score is the detection confidence
	Score float32
}

// Pose returns the head angles of the face
func (f Face) Pose() quality.Pose {
	return quality.Pose{Yaw: f.Yaw, Pitch: f.Pitch, Roll: f.Roll}
}

// Observation returns the face in the form the quality gate evaluates
func (f Face) Observation() quality.Observation {
	return quality.Observation{Box: f.Box, Pose: f.Pose()}
}

// Observations converts a detection list for the quality gate
func Observations(faces []Face) []quality.Observation {
	obs := make([]quality.Observation, len(faces))

	for i, f := range faces {
		obs[i] = f.Observation()
	}

	return obs
}

// Detector finds faces in an upright BGR image.  Implementations need not
// be safe for concurrent use, the capture session never has more than one
// call outstanding.
type Detector interface {
	Detect(ctx context.Context, img gocv.Mat) ([]Face, error)
	Close() error
}
