package preprocess

import (
	"errors"
	"gocv.io/x/gocv"
	"image"
	"testing"
)

// grayFrame returns a frame with constant luma and neutral chroma
func grayFrame(w, h, rot int, luma byte) *Frame {
	f := testFrame(w, h, rot, func(x, y int) byte { return luma })

	// neutral chroma so the BGR output is gray
	uv := f.Planes[1].Data
	for i := range uv {
		uv[i] = 128
	}

	return f
}

func TestDecodeFrame(t *testing.T) {

	f := grayFrame(64, 48, 0, 120)

	mat, err := DecodeFrame(f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer mat.Close()

	if mat.Cols() != 64 || mat.Rows() != 48 || mat.Channels() != 3 {
		t.Fatalf("expected 64x48x3 Mat, got %dx%dx%d", mat.Cols(), mat.Rows(), mat.Channels())
	}

	for c := 0; c < 3; c++ {
		v := int(mat.GetUCharAt(10, 10*3+c))

		if v < 115 || v > 125 {
			t.Errorf("channel %d expected ~120, got %d", c, v)
		}
	}
}

func TestDecodeNV21BadBuffer(t *testing.T) {

	mat, err := DecodeNV21(make([]byte, 10), 64, 48)
	defer mat.Close()

	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestUprightRotation(t *testing.T) {

	tests := []struct {
		deg          int
		expectedCols int
		expectedRows int
	}{
		{0, 64, 48},
		{90, 48, 64},
		{180, 64, 48},
		{270, 48, 64},
	}

	for _, tc := range tests {
		f := grayFrame(64, 48, tc.deg, 80)

		mat, err := Upright(f)

		if err != nil {
			t.Fatalf("rotation %d: unexpected error: %v", tc.deg, err)
		}

		if mat.Cols() != tc.expectedCols || mat.Rows() != tc.expectedRows {
			t.Errorf("rotation %d: expected %dx%d, got %dx%d", tc.deg,
				tc.expectedCols, tc.expectedRows, mat.Cols(), mat.Rows())
		}

		mat.Close()
	}
}

func TestRotateUnsupported(t *testing.T) {

	src := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1)
	dst := gocv.NewMat()
	defer src.Close()
	defer dst.Close()

	if err := Rotate(src, &dst, 45); !errors.Is(err, ErrUnsupportedRotation) {
		t.Errorf("expected ErrUnsupportedRotation, got %v", err)
	}
}

func TestDecodeRegion(t *testing.T) {

	f := grayFrame(64, 48, 90, 200)

	mat, aligned, err := DecodeRegion(f, image.Rect(11, 5, 31, 25))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer mat.Close()

	if aligned != image.Rect(10, 4, 32, 26) {
		t.Errorf("expected aligned region (10,4)-(32,26), got %v", aligned)
	}

	if mat.Cols() != aligned.Dx() || mat.Rows() != aligned.Dy() {
		t.Errorf("expected region Mat %dx%d, got %dx%d", aligned.Dx(), aligned.Dy(),
			mat.Cols(), mat.Rows())
	}
}

func TestFinishMirror(t *testing.T) {

	// single channel 2x3 image with distinct columns
	src, err := gocv.NewMatFromBytes(2, 3, gocv.MatTypeCV8UC1, []byte{
		1, 2, 3,
		4, 5, 6,
	})

	if err != nil {
		t.Fatalf("unexpected error creating Mat: %v", err)
	}

	defer src.Close()

	plain, err := Finish(src, 0, false)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer plain.Close()

	if plain.GetUCharAt(0, 0) != 1 {
		t.Errorf("expected unmirrored first pixel 1, got %d", plain.GetUCharAt(0, 0))
	}

	mirrored, err := Finish(src, 0, true)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer mirrored.Close()

	if mirrored.GetUCharAt(0, 0) != 3 || mirrored.GetUCharAt(1, 2) != 4 {
		t.Errorf("expected mirrored row order, got %d and %d",
			mirrored.GetUCharAt(0, 0), mirrored.GetUCharAt(1, 2))
	}

	rotated, err := Finish(src, 90, false)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer rotated.Close()

	// clockwise rotation puts the bottom left pixel top left
	if rotated.Rows() != 3 || rotated.Cols() != 2 || rotated.GetUCharAt(0, 0) != 4 {
		t.Errorf("expected 2x3 rotated Mat starting with 4, got %dx%d starting %d",
			rotated.Cols(), rotated.Rows(), rotated.GetUCharAt(0, 0))
	}
}
