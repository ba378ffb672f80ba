/*
Example code showing how to capture a face from a webcam with a capture
session.  Frames are read from the camera, converted to planar YUV the way a
mobile camera delivers them and submitted to the session until a sharp, still
and well posed face has been saved.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/swdee/go-facecapture"
	"github.com/swdee/go-facecapture/detector"
	"github.com/swdee/go-facecapture/preprocess"
	"gocv.io/x/gocv"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	modelFile := flag.String("m", "../data/models/face_detection_yunet_2023mar.onnx", "YuNet ONNX face detection model file")
	device := flag.Int("d", 0, "Camera device ID")
	rotation := flag.Int("r", 0, "Clockwise rotation to make camera frames upright [0|90|180|270]")
	configFile := flag.String("c", "", "Optional YAML configuration file")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := facecapture.LoadConfig(*configFile)

	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	// the detector is created lazily by the session and recreated if the
	// configuration changes
	newDetector := func(cfg facecapture.Config) (detector.Detector, error) {
		dcfg := detector.DefaultYuNetConfig(*modelFile)
		dcfg.MinFaceSide = cfg.MinFaceSidePx / 2

		det, err := detector.NewYuNet(dcfg)

		if err != nil {
			return nil, err
		}

		return det, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cam *gocv.VideoCapture

	// opening the camera plays the part of the camera permission request
	permission := func(ctx context.Context) error {
		var err error
		cam, err = gocv.OpenVideoCapture(*device)
		return err
	}

	sess, err := facecapture.StartCaptureSession(ctx, cfg, newDetector,
		facecapture.WithLogger(logger),
		facecapture.WithPermissionCheck(permission),
	)

	if errors.Is(err, facecapture.ErrPermissionDenied) {
		log.Fatal("Camera not available: ", err)
	}

	if err != nil {
		log.Fatal("Error starting capture session: ", err)
	}

	defer cam.Close()

	go readFrames(sess, cam, *rotation)

	start := time.Now()

	for ev := range sess.Events() {
		switch ev.Kind {
		case facecapture.EventHint:
			fmt.Printf("%6s  %s\n", time.Since(start).Truncate(time.Millisecond*100), ev.Hint())

		case facecapture.EventCaptured:
			fmt.Printf("Captured %dx%d face, sharpness %.1f\n",
				ev.Image.Width, ev.Image.Height, ev.Image.Sharpness)
			fmt.Printf("Saved to %s\n", ev.Image.Path)

		case facecapture.EventTimedOut:
			fmt.Println("Timed out waiting for a good photo")

		case facecapture.EventCancelled:
			fmt.Println("Capture cancelled")

		case facecapture.EventPermissionDenied:
			fmt.Printf("Camera permission denied: %v\n", ev.Err)
		}
	}

	sess.Wait()

	st := sess.Stats()

	log.Printf("Frames received=%d dropped=%d analyzed=%d sharpness rejections=%d\n",
		st.FramesReceived, st.FramesDropped, st.FramesAnalyzed, st.SharpnessRejections)
}

// readFrames feeds camera frames to the session until it ends
func readFrames(sess *facecapture.Session, cam *gocv.VideoCapture, rotation int) {

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-sess.Done():
			return
		default:
		}

		if ok := cam.Read(&img); !ok {
			log.Println("Camera stream closed")
			sess.Cancel()
			return
		}

		if img.Empty() {
			continue
		}

		frame, err := preprocess.FrameFromMat(img, rotation, time.Now())

		if err != nil {
			log.Printf("Error converting frame: %v\n", err)
			continue
		}

		// frames arriving while the previous one is analyzed are dropped
		_ = sess.Submit(frame)
	}
}
