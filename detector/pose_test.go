package detector

import (
	"image"
	"math"
	"testing"
)

// frontal landmarks of a level face looking at the camera
var frontal = [5]image.Point{
	RightEye:   {100, 100},
	LeftEye:    {160, 100},
	NoseTip:    {130, 130},
	RightMouth: {110, 160},
	LeftMouth:  {150, 160},
}

// rotateLandmarks rotates points clockwise on screen by deg around c
func rotateLandmarks(lm [5]image.Point, deg float64, c image.Point) [5]image.Point {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	var out [5]image.Point

	for i, p := range lm {
		x := float64(p.X - c.X)
		y := float64(p.Y - c.Y)
		out[i] = image.Pt(
			c.X+int(math.Round(x*cos-y*sin)),
			c.Y+int(math.Round(x*sin+y*cos)),
		)
	}

	return out
}

// near reports whether got is within tol of want
func near(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestEstimatePoseFrontal(t *testing.T) {
	p := EstimatePose(frontal)

	if !near(p.Yaw, 0, 1e-9) || !near(p.Pitch, 0, 1e-9) || !near(p.Roll, 0, 1e-9) {
		t.Errorf("expected a level frontal pose, got %+v", p)
	}
}

func TestEstimatePoseRoll(t *testing.T) {
	p := EstimatePose(rotateLandmarks(frontal, 30, image.Pt(130, 130)))

	if !near(p.Roll, 30, 1.5) {
		t.Errorf("expected roll near 30, got %v", p.Roll)
	}

	if !near(p.Yaw, 0, 2) || !near(p.Pitch, 0, 2) {
		t.Errorf("expected rotation to leave yaw and pitch near 0, got %+v", p)
	}
}

func TestEstimatePoseYaw(t *testing.T) {
	lm := frontal
	lm[NoseTip] = image.Pt(150, 130)

	p := EstimatePose(lm)

	if p.Yaw <= 20 {
		t.Errorf("expected yaw above 20 with the nose to the left eye, got %v", p.Yaw)
	}

	if !near(p.Pitch, 0, 1e-9) {
		t.Errorf("expected pitch 0, got %v", p.Pitch)
	}

	lm[NoseTip] = image.Pt(110, 130)

	if yaw := EstimatePose(lm).Yaw; yaw >= -20 {
		t.Errorf("expected yaw below -20 with the nose to the right eye, got %v", yaw)
	}
}

func TestEstimatePosePitch(t *testing.T) {
	lm := frontal
	lm[NoseTip] = image.Pt(130, 115)

	p := EstimatePose(lm)

	if p.Pitch <= 20 {
		t.Errorf("expected pitch above 20 with the nose raised, got %v", p.Pitch)
	}

	if !near(p.Yaw, 0, 1e-9) {
		t.Errorf("expected yaw 0, got %v", p.Yaw)
	}

	lm[NoseTip] = image.Pt(130, 145)

	if pitch := EstimatePose(lm).Pitch; pitch >= -20 {
		t.Errorf("expected pitch below -20 with the nose lowered, got %v", pitch)
	}
}

func TestEstimatePoseDegenerate(t *testing.T) {
	var lm [5]image.Point

	if p := EstimatePose(lm); p.Yaw != 0 || p.Pitch != 0 || p.Roll != 0 {
		t.Errorf("expected a zero pose for collapsed landmarks, got %+v", p)
	}
}

func TestObservations(t *testing.T) {
	faces := []Face{
		{Box: image.Rect(0, 0, 10, 10), Yaw: 1, Pitch: 2, Roll: 3, TrackID: 7},
		{Box: image.Rect(5, 5, 20, 20), TrackID: NoTrackID},
	}

	obs := Observations(faces)

	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}

	for i := range faces {
		if obs[i].Box != faces[i].Box {
			t.Errorf("observation %d: expected box %v, got %v", i, faces[i].Box, obs[i].Box)
		}
	}

	if obs[0].Pose.Pitch != 2 {
		t.Errorf("expected pitch 2, got %v", obs[0].Pose.Pitch)
	}
}
