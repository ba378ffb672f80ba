package detector

import (
	"image"
	"math"

	"github.com/swdee/go-facecapture/quality"
)

const (
	// noseDepthRatio is the distance of the nose tip in front of the eye
	// plane relative to the inter-ocular distance
	noseDepthRatio = 0.55
	// noseNeutralRatio is where the nose tip sits between the eye line and
	// the mouth line on a level head
	noseNeutralRatio = 0.5
	// minEyeDistance in pixels below which landmarks are too close together
	// to give a meaningful pose
	minEyeDistance = 2.0
)

// EstimatePose approximates head Euler angles in degrees from the five
// facial landmarks.  Roll is the tilt of the eye line.  Yaw and pitch come
// from the nose tip displacement, measured in a frame aligned to the eye
// line, against where it sits on a frontal face.
func EstimatePose(lm [5]image.Point) quality.Pose {

	re := toVec(lm[RightEye])
	le := toVec(lm[LeftEye])

	dx := le.x - re.x
	dy := le.y - re.y
	iod := math.Hypot(dx, dy)

	if iod < minEyeDistance {
		return quality.Pose{}
	}

	roll := math.Atan2(dy, dx)
	cos, sin := math.Cos(roll), math.Sin(roll)

	eyeMid := vec{(re.x + le.x) / 2, (re.y + le.y) / 2}
	mouthMid := vec{
		(float64(lm[RightMouth].X) + float64(lm[LeftMouth].X)) / 2,
		(float64(lm[RightMouth].Y) + float64(lm[LeftMouth].Y)) / 2,
	}

	// nose and mouth relative to the eye mid point with roll removed
	nose := toVec(lm[NoseTip]).sub(eyeMid).rotate(cos, sin)
	mouth := mouthMid.sub(eyeMid).rotate(cos, sin)

	depth := noseDepthRatio * iod

	yaw := asinDeg(nose.x / depth)

	pitch := 0.0
	if mouth.y > 0 {
		pitch = asinDeg((noseNeutralRatio*mouth.y - nose.y) / depth)
	}

	return quality.Pose{
		Yaw:   yaw,
		Pitch: pitch,
		Roll:  roll * 180 / math.Pi,
	}
}

type vec struct {
	x, y float64
}

func toVec(p image.Point) vec {
	return vec{float64(p.X), float64(p.Y)}
}

func (v vec) sub(o vec) vec {
	return vec{v.x - o.x, v.y - o.y}
}

// rotate by the negative of the angle whose cosine and sine are given
func (v vec) rotate(cos, sin float64) vec {
	return vec{v.x*cos + v.y*sin, -v.x*sin + v.y*cos}
}

func asinDeg(v float64) float64 {
	return math.Asin(math.Max(-1, math.Min(1, v))) * 180 / math.Pi
}
