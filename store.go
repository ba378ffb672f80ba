package facecapture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

const (
	// imagesDir is the subdirectory of the cache dir captures are kept in
	imagesDir = "images"
	// filePrefix and fileExt frame every capture file name
	filePrefix = "face_bbox_"
	fileExt    = ".jpg"
	// fileTimeLayout is the timestamp format in capture file names
	fileTimeLayout = "20060102_150405"
)

// ErrUnknownHandle is returned when no capture exists for a handle
var ErrUnknownHandle = errors.New("unknown capture handle")

// CapturedImage is an accepted capture written to the cache
type CapturedImage struct {
	// Handle is the opaque reference to the capture
	Handle string
	// Path of the JPEG file
	Path string
	// JPEG is the encoded image
	JPEG []byte
	// Width and Height of the image in pixels
	Width  int
	Height int
	// Sharpness is the Laplacian variance the capture was accepted with
	Sharpness float64
	// CapturedAt is the timestamp of the frame the image was taken from
	CapturedAt time.Time
}

// Store writes captured images as JPEG files into a cache directory.  The
// caller owns the files and should Remove them once used, Cleanup removes
// any left behind.
type Store struct {
	dir     string
	quality int
}

// NewStore returns a store writing into cacheDir/images with the given JPEG
// quality
func NewStore(cacheDir string, quality int) (*Store, error) {

	dir := filepath.Join(cacheDir, imagesDir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating capture dir: %w", err)
	}

	return &Store{dir: dir, quality: quality}, nil
}

// Dir returns the directory captures are written to
func (st *Store) Dir() string {
	return st.dir
}

// Save encodes the BGR image as JPEG and writes it to the cache
func (st *Store) Save(img gocv.Mat, capturedAt time.Time) (*CapturedImage, error) {

	if img.Empty() {
		return nil, fmt.Errorf("error encoding capture: empty image")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, st.quality})

	if err != nil {
		return nil, fmt.Errorf("error encoding capture: %w", err)
	}

	defer buf.Close()

	// copy out of the native buffer before it is closed
	data := append([]byte(nil), buf.GetBytes()...)

	handle := uuid.NewString()
	name := filePrefix + capturedAt.Format(fileTimeLayout) + "_" + handle + fileExt
	path := filepath.Join(st.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("error writing capture: %w", err)
	}

	return &CapturedImage{
		Handle:     handle,
		Path:       path,
		JPEG:       data,
		Width:      img.Cols(),
		Height:     img.Rows(),
		CapturedAt: capturedAt,
	}, nil
}

// Path resolves a capture handle to its file
func (st *Store) Path(handle string) (string, error) {

	if _, err := uuid.Parse(handle); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	matches, err := filepath.Glob(filepath.Join(st.dir, filePrefix+"*_"+handle+fileExt))

	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	return matches[0], nil
}

// Remove deletes the capture referenced by handle
func (st *Store) Remove(handle string) error {

	path, err := st.Path(handle)

	if err != nil {
		return err
	}

	return os.Remove(path)
}

// Cleanup removes captures last modified more than maxAge ago and returns
// how many were removed.  It keeps going past individual failures and
// returns them joined.
func (st *Store) Cleanup(maxAge time.Duration) (int, error) {

	entries, err := os.ReadDir(st.dir)

	if err != nil {
		return 0, fmt.Errorf("error reading capture dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	var errs []error

	for _, e := range entries {
		name := e.Name()

		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}

		info, err := e.Info()

		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(st.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}

		removed++
	}

	return removed, errors.Join(errs...)
}
