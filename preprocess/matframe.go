package preprocess

import (
	"fmt"
	"gocv.io/x/gocv"
	"time"
)

// FrameFromMat builds a planar I420 Frame from a BGR Mat, such as one read
// from a gocv.VideoCapture device.  The Mat is treated as raw sensor output
// that needs rotating by deg degrees to be upright.
func FrameFromMat(img gocv.Mat, deg int, ts time.Time) (*Frame, error) {

	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}

	w, h := img.Cols(), img.Rows()

	if w%2 != 0 || h%2 != 0 {
		return nil, fmt.Errorf("%w: odd size %dx%d", ErrInvalidFrame, w, h)
	}

	yuv := gocv.NewMat()
	defer yuv.Close()

	gocv.CvtColor(img, &yuv, gocv.ColorBGRToYUVI420)

	buf := yuv.ToBytes()
	lumaSize := w * h
	chromaSize := lumaSize / 4

	if len(buf) < lumaSize+2*chromaSize {
		return nil, fmt.Errorf("%w: I420 buffer %d bytes", ErrDecode, len(buf))
	}

	planes := [3]Plane{
		{Data: buf[:lumaSize], RowStride: w, PixelStride: 1},
		{Data: buf[lumaSize : lumaSize+chromaSize], RowStride: w / 2, PixelStride: 1},
		{Data: buf[lumaSize+chromaSize : lumaSize+2*chromaSize], RowStride: w / 2, PixelStride: 1},
	}

	return NewFrame(w, h, deg, planes, ts, nil), nil
}
