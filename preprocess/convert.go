package preprocess

import (
	"errors"
	"fmt"
	"gocv.io/x/gocv"
	"image"
)

// ErrDecode is returned when a packed NV21 buffer can not be converted into
// a BGR image.  It is fatal only to the frame being processed.
var ErrDecode = errors.New("frame decode failed")

// DecodeNV21 converts a packed NV21 buffer of the given size into a BGR Mat
// in raw sensor orientation.  Caller must Close the returned Mat.
func DecodeNV21(nv21 []byte, width, height int) (gocv.Mat, error) {

	if len(nv21) != width*height*3/2 {
		return gocv.NewMat(), fmt.Errorf("%w: buffer %d bytes for %dx%d",
			ErrDecode, len(nv21), width, height)
	}

	yuv, err := gocv.NewMatFromBytes(height*3/2, width, gocv.MatTypeCV8UC1, nv21)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrDecode, err)
	}

	defer yuv.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(yuv, &bgr, gocv.ColorYUVToBGRNV21)

	if bgr.Empty() {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("%w: empty conversion result", ErrDecode)
	}

	return bgr, nil
}

// DecodeFrame packs and converts the frame into a BGR Mat in raw sensor
// orientation
func DecodeFrame(f *Frame) (gocv.Mat, error) {

	nv21, err := PackNV21(f)

	if err != nil {
		return gocv.NewMat(), err
	}

	return DecodeNV21(nv21, f.Width, f.Height)
}

// DecodeRegion converts only the raw rectangle r of the frame.  The region is
// aligned outward to even coordinates, the aligned rectangle actually
// decoded is returned along with the Mat.
func DecodeRegion(f *Frame, r image.Rectangle) (gocv.Mat, image.Rectangle, error) {

	nv21, aligned, err := CropNV21(f, r)

	if err != nil {
		return gocv.NewMat(), aligned, err
	}

	mat, err := DecodeNV21(nv21, aligned.Dx(), aligned.Dy())

	return mat, aligned, err
}

// Upright decodes the whole frame and rotates it so it displays upright
func Upright(f *Frame) (gocv.Mat, error) {

	raw, err := DecodeFrame(f)

	if err != nil {
		return raw, err
	}

	defer raw.Close()

	out := gocv.NewMat()

	if err := Rotate(raw, &out, f.Rotation); err != nil {
		out.Close()
		return gocv.NewMat(), err
	}

	return out, nil
}

// Rotate rotates src clockwise by deg degrees into dst.  A rotation of zero
// copies src.
func Rotate(src gocv.Mat, dst *gocv.Mat, deg int) error {

	switch deg {
	case 0:
		src.CopyTo(dst)
	case 90:
		gocv.Rotate(src, dst, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(src, dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(src, dst, gocv.Rotate90CounterClockwise)
	default:
		return validRotation(deg)
	}

	return nil
}

// Mirror flips src around the vertical axis into dst so a front facing
// camera image matches the subject's own left and right
func Mirror(src gocv.Mat, dst *gocv.Mat) {
	gocv.Flip(src, dst, 1)
}

// Finish applies the final orientation to an extracted region, rotating to
// upright and mirroring when requested.  The result is a new Mat the caller
// must Close.
func Finish(region gocv.Mat, deg int, mirror bool) (gocv.Mat, error) {

	upright := gocv.NewMat()

	if err := Rotate(region, &upright, deg); err != nil {
		upright.Close()
		return gocv.NewMat(), err
	}

	if !mirror {
		return upright, nil
	}

	defer upright.Close()

	mirrored := gocv.NewMat()
	Mirror(upright, &mirrored)

	return mirrored, nil
}
