package facecapture

import "errors"

var (
	// ErrSessionClosed is returned for frames submitted after the session
	// reached a terminal state
	ErrSessionClosed = errors.New("capture session closed")
	// ErrBusy is returned when a frame arrives while the previous frame is
	// still being analyzed, the frame is dropped
	ErrBusy = errors.New("capture session busy")
	// ErrPermissionDenied ends a session whose camera access was refused
	ErrPermissionDenied = errors.New("camera permission denied")
)
