package preprocess

import (
	"gocv.io/x/gocv"
	"image"
	"math"
)

// Scaler defines the struct used for shrinking an upright frame down to the
// size the face detector runs at, and for mapping detections back into the
// frame's coordinates
type Scaler struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// maxSide is the longest side allowed after scaling
	maxSide int
	// scale is the factor applied to the source, never above 1
	scale float64
	// resize dimensions
	resizeW int
	resizeH int
}

// NewScaler returns a scaler for images of srcWidth x srcHeight so that the
// longest side is no more than maxSide.  Images already small enough, or a
// maxSide of zero, are passed through unscaled.
func NewScaler(srcWidth, srcHeight, maxSide int) *Scaler {
	s := &Scaler{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		maxSide:   maxSide,
	}

	// precalculate scaling dimensions
	s.preCalc()

	return s
}

// preCalc the scale factor and destination size
func (s *Scaler) preCalc() {

	s.scale = 1
	s.resizeW = s.srcWidth
	s.resizeH = s.srcHeight

	longest := s.srcWidth
	if s.srcHeight > longest {
		longest = s.srcHeight
	}

	if s.maxSide <= 0 || longest <= s.maxSide {
		return
	}

	s.scale = float64(s.maxSide) / float64(longest)
	s.resizeW = int(math.Max(1, math.Round(float64(s.srcWidth)*s.scale)))
	s.resizeH = int(math.Max(1, math.Round(float64(s.srcHeight)*s.scale)))
}

// Resize scales src into dest.  When no scaling is needed src is copied.
func (s *Scaler) Resize(src gocv.Mat, dest *gocv.Mat) {

	if s.scale == 1 {
		src.CopyTo(dest)
		return
	}

	gocv.Resize(src, dest, image.Pt(s.resizeW, s.resizeH), 0, 0,
		gocv.InterpolationArea)
}

// ToSource maps a rectangle in scaled coordinates back to the source image
func (s *Scaler) ToSource(r image.Rectangle) image.Rectangle {

	if s.scale == 1 {
		return r
	}

	inv := 1 / s.scale

	return image.Rect(
		int(math.Round(float64(r.Min.X)*inv)),
		int(math.Round(float64(r.Min.Y)*inv)),
		int(math.Round(float64(r.Max.X)*inv)),
		int(math.Round(float64(r.Max.Y)*inv)),
	).Intersect(image.Rect(0, 0, s.srcWidth, s.srcHeight))
}

// PointToSource maps a point in scaled coordinates back to the source image
func (s *Scaler) PointToSource(x, y float64) image.Point {
	return image.Pt(int(math.Round(x/s.scale)), int(math.Round(y/s.scale)))
}

// ScaleFactor returns the scale factor applied to the source image
func (s *Scaler) ScaleFactor() float64 {
	return s.scale
}

// Size returns the scaled image dimensions
func (s *Scaler) Size() image.Point {
	return image.Pt(s.resizeW, s.resizeH)
}
