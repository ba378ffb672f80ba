package preprocess

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

var (
	// ErrInvalidFrame is returned when a Frame's geometry or plane buffers
	// can not describe a YUV 4:2:0 image
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrUnsupportedRotation is returned for rotations other than 0, 90, 180
	// and 270 degrees
	ErrUnsupportedRotation = errors.New("unsupported rotation")
)

// Plane is a single image plane of a sensor frame.  Pixels within a row
// may not be contiguous (PixelStride > 1) and rows may be padded
// (RowStride > width)
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// at returns the sample at column x, row y of the plane
func (p Plane) at(x, y int) byte {
	return p.Data[y*p.RowStride+x*p.PixelStride]
}

// Frame is one YUV 4:2:0 sample delivered by the camera sensor.  Planes are
// ordered Y, U, V.  Rotation is the clockwise rotation in degrees needed to
// display the frame upright.
type Frame struct {
	Width     int
	Height    int
	Rotation  int
	Planes    [3]Plane
	Timestamp time.Time

	// closer releases the underlying sensor buffer
	closer func()
	once   *sync.Once
}

// NewFrame returns a Frame backed by the given planes.  The closer function,
// which may be nil, is called exactly once by Release.
func NewFrame(width, height, rotation int, planes [3]Plane, ts time.Time,
	closer func()) *Frame {

	return &Frame{
		Width:     width,
		Height:    height,
		Rotation:  rotation,
		Planes:    planes,
		Timestamp: ts,
		closer:    closer,
		once:      &sync.Once{},
	}
}

// Release frees the sensor buffer backing the frame.  It is safe to call
// multiple times, only the first call has any effect.
func (f *Frame) Release() {
	if f == nil || f.once == nil {
		return
	}

	f.once.Do(func() {
		if f.closer != nil {
			f.closer()
		}
	})
}

// Bounds returns the frame rectangle in raw sensor coordinates
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// UprightSize returns the frame dimensions after rotation to upright
func (f *Frame) UprightSize() (int, int) {
	return UprightSize(f.Width, f.Height, f.Rotation)
}

// Validate checks the frame geometry and that every plane holds enough
// data for the strides given
func (f *Frame) Validate() error {

	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}

	// 4:2:0 chroma needs even dimensions to pack as NV21
	if f.Width%2 != 0 || f.Height%2 != 0 {
		return fmt.Errorf("%w: odd size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}

	if err := validRotation(f.Rotation); err != nil {
		return err
	}

	dims := [3][2]int{
		{f.Width, f.Height},
		{f.Width / 2, f.Height / 2},
		{f.Width / 2, f.Height / 2},
	}

	for i, p := range f.Planes {
		w, h := dims[i][0], dims[i][1]

		if p.PixelStride < 1 || p.RowStride < (w-1)*p.PixelStride+1 {
			return fmt.Errorf("%w: plane %d strides row=%d pixel=%d",
				ErrInvalidFrame, i, p.RowStride, p.PixelStride)
		}

		// last row need not be padded out to the full row stride
		need := (h-1)*p.RowStride + (w-1)*p.PixelStride + 1

		if len(p.Data) < need {
			return fmt.Errorf("%w: plane %d has %d bytes, need %d",
				ErrInvalidFrame, i, len(p.Data), need)
		}
	}

	return nil
}

// Sub returns a view of the frame restricted to the raw rectangle r.  The
// rectangle is first aligned outward to even coordinates so the chroma
// planes stay registered with luma, then clipped to the frame.  The view
// shares plane memory with f and does not own the sensor buffer.
func (f *Frame) Sub(r image.Rectangle) (*Frame, image.Rectangle, error) {

	r = AlignEven(r).Intersect(f.Bounds())

	if r.Empty() {
		return nil, r, fmt.Errorf("%w: empty region %v", ErrInvalidFrame, r)
	}

	sub := &Frame{
		Width:     r.Dx(),
		Height:    r.Dy(),
		Rotation:  f.Rotation,
		Timestamp: f.Timestamp,
	}

	y := f.Planes[0]
	sub.Planes[0] = Plane{
		Data:        y.Data[r.Min.Y*y.RowStride+r.Min.X*y.PixelStride:],
		RowStride:   y.RowStride,
		PixelStride: y.PixelStride,
	}

	cx, cy := r.Min.X/2, r.Min.Y/2

	for i := 1; i < 3; i++ {
		p := f.Planes[i]
		sub.Planes[i] = Plane{
			Data:        p.Data[cy*p.RowStride+cx*p.PixelStride:],
			RowStride:   p.RowStride,
			PixelStride: p.PixelStride,
		}
	}

	return sub, r, nil
}

// AlignEven grows the rectangle so all of its coordinates are even
func AlignEven(r image.Rectangle) image.Rectangle {
	return image.Rect(
		r.Min.X&^1,
		r.Min.Y&^1,
		(r.Max.X+1)&^1,
		(r.Max.Y+1)&^1,
	)
}

func validRotation(deg int) error {
	switch deg {
	case 0, 90, 180, 270:
		return nil
	}

	return fmt.Errorf("%w: %d degrees", ErrUnsupportedRotation, deg)
}
