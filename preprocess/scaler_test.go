package preprocess

import (
	"gocv.io/x/gocv"
	"image"
	"testing"
)

func TestScaler(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		maxSide       int
		expectedSize  image.Point
		expectedScale float64
	}{
		{1280, 720, 640, image.Pt(640, 360), 0.5},
		{720, 1280, 640, image.Pt(360, 640), 0.5},
		{640, 480, 640, image.Pt(640, 480), 1},
		{640, 480, 0, image.Pt(640, 480), 1},
		{1000, 800, 320, image.Pt(320, 256), 0.32},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		scaler := NewScaler(tc.srcWidth, tc.srcHeight, tc.maxSide)
		scaler.Resize(img, &resizedImg)

		if scaler.Size() != tc.expectedSize {
			t.Errorf("Test failed for src (%d, %d): expected size %v, got %v",
				tc.srcWidth, tc.srcHeight, tc.expectedSize, scaler.Size())
		}

		if resizedImg.Cols() != tc.expectedSize.X || resizedImg.Rows() != tc.expectedSize.Y {
			t.Errorf("Test failed for src (%d, %d): resized Mat is %dx%d",
				tc.srcWidth, tc.srcHeight, resizedImg.Cols(), resizedImg.Rows())
		}

		if scaler.ScaleFactor() != tc.expectedScale {
			t.Errorf("Test failed for src (%d, %d): scale factor incorrect, expected %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, scaler.ScaleFactor())
		}

		img.Close()
		resizedImg.Close()
	}
}

func TestScalerToSource(t *testing.T) {

	scaler := NewScaler(1280, 720, 640)

	got := scaler.ToSource(image.Rect(100, 50, 200, 150))

	if got != image.Rect(200, 100, 400, 300) {
		t.Errorf("expected rect scaled back to (200,100)-(400,300), got %v", got)
	}

	// clipped to the source image
	got = scaler.ToSource(image.Rect(600, 300, 700, 400))

	if got != image.Rect(1200, 600, 1280, 720) {
		t.Errorf("expected rect clipped to source bounds, got %v", got)
	}

	if p := scaler.PointToSource(10.2, 20.6); p != image.Pt(20, 41) {
		t.Errorf("expected point (20,41), got %v", p)
	}
}
