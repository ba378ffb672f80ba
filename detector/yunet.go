package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/swdee/go-facecapture/preprocess"
	"github.com/swdee/go-facecapture/tracker"
	"gocv.io/x/gocv"
)

// ErrClosed is returned by Detect after the detector has been closed
var ErrClosed = errors.New("detector closed")

// yunetColumns is the width of a row in the FaceDetectorYN output, box
// x,y,w,h then five landmark x,y pairs then the score
const yunetColumns = 15

// YuNetConfig holds the parameters of the YuNet face detector
type YuNetConfig struct {
	// ModelPath is the path to the face_detection_yunet ONNX model
	ModelPath string
	// ScoreThreshold is the minimum detection confidence
	ScoreThreshold float32
	// NMSThreshold is the IoU above which overlapping boxes are suppressed
	NMSThreshold float32
	// TopK limits the number of boxes kept before NMS
	TopK int
	// MaxInputSide is the longest side images are scaled down to before
	// inference, zero runs at full resolution
	MaxInputSide int
	// MinFaceSide in source pixels, smaller faces are discarded
	MinFaceSide int
	// TrackIoU is the overlap needed to keep a tracking ID between frames
	TrackIoU float64
	// TrackMaxLost is the number of frames a subject may be missing before
	// its tracking ID is retired
	TrackMaxLost int
}

// DefaultYuNetConfig returns the detector settings used for capture
func DefaultYuNetConfig(modelPath string) YuNetConfig {
	return YuNetConfig{
		ModelPath:      modelPath,
		ScoreThreshold: 0.7,
		NMSThreshold:   0.3,
		TopK:           50,
		MaxInputSide:   320,
		TrackIoU:       0.3,
		TrackMaxLost:   5,
	}
}

// YuNet detects faces with OpenCV's FaceDetectorYN and derives head pose
// from the landmarks it returns
type YuNet struct {
	cfg       YuNetConfig
	net       gocv.FaceDetectorYN
	open      bool
	inputSize image.Point
	tracker   *tracker.FaceTracker
	mu        sync.Mutex
}

// NewYuNet loads the YuNet model and returns a detector
func NewYuNet(cfg YuNetConfig) (*YuNet, error) {

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("error loading yunet model: %w", err)
	}

	y := &YuNet{
		cfg:     cfg,
		tracker: tracker.NewFaceTracker(cfg.TrackIoU, cfg.TrackMaxLost),
	}

	y.openNet()

	return y, nil
}

// openNet creates the native detector, an initial input size is required
// and is replaced on the first Detect call
func (y *YuNet) openNet() {

	y.inputSize = image.Pt(320, 320)

	y.net = gocv.NewFaceDetectorYNWithParams(
		y.cfg.ModelPath,
		"",
		y.inputSize,
		y.cfg.ScoreThreshold,
		y.cfg.NMSThreshold,
		y.cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	y.open = true
}

// Detect finds faces in the upright BGR image
func (y *YuNet) Detect(ctx context.Context, img gocv.Mat) ([]Face, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !y.open {
		return nil, ErrClosed
	}

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	scaler := preprocess.NewScaler(img.Cols(), img.Rows(), y.cfg.MaxInputSide)

	small := gocv.NewMat()
	defer small.Close()

	scaler.Resize(img, &small)

	if size := scaler.Size(); size != y.inputSize {
		y.net.SetInputSize(size)
		y.inputSize = size
	}

	out := gocv.NewMat()
	defer out.Close()

	y.net.Detect(small, &out)

	faces := y.parse(out, scaler)

	boxes := make([]image.Rectangle, len(faces))
	for i := range faces {
		boxes[i] = faces[i].Box
	}

	ids := y.tracker.Update(boxes)
	for i := range faces {
		faces[i].TrackID = ids[i]
	}

	return faces, nil
}

// parse converts the detector output rows into faces in source coordinates
func (y *YuNet) parse(out gocv.Mat, scaler *preprocess.Scaler) []Face {

	if out.Empty() || out.Cols() < yunetColumns {
		return nil
	}

	faces := make([]Face, 0, out.Rows())
	minSide := float64(y.cfg.MinFaceSide) * scaler.ScaleFactor()

	for r := 0; r < out.Rows(); r++ {
		x := float64(out.GetFloatAt(r, 0))
		yy := float64(out.GetFloatAt(r, 1))
		w := float64(out.GetFloatAt(r, 2))
		h := float64(out.GetFloatAt(r, 3))

		// minimum face size in detector input pixels
		if w < minSide || h < minSide {
			continue
		}

		box := scaler.ToSource(image.Rect(
			int(math.Round(x)), int(math.Round(yy)),
			int(math.Round(x+w)), int(math.Round(yy+h)),
		))

		if box.Empty() {
			continue
		}

		var lm [5]image.Point
		for i := range lm {
			lm[i] = scaler.PointToSource(
				float64(out.GetFloatAt(r, 4+i*2)),
				float64(out.GetFloatAt(r, 5+i*2)),
			)
		}

		pose := EstimatePose(lm)

		faces = append(faces, Face{
			Box:       box,
			Yaw:       pose.Yaw,
			Pitch:     pose.Pitch,
			Roll:      pose.Roll,
			TrackID:   NoTrackID,
			Landmarks: lm,
			Score:     out.GetFloatAt(r, 14),
		})
	}

	return faces
}

// Close releases the native detector
func (y *YuNet) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()

	if !y.open {
		return nil
	}

	y.net.Close()
	y.open = false

	return nil
}
