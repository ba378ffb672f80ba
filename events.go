package facecapture

import (
	"strings"
	"sync/atomic"
)

// EventKind identifies what a session Event reports
type EventKind int

const (
	// EventHint carries the current guidance for the subject
	EventHint EventKind = iota
	// EventCaptured carries the accepted image, it is terminal
	EventCaptured
	// EventCancelled is sent when the session was cancelled by the caller
	EventCancelled
	// EventTimedOut is sent when no capture happened within the timeout
	EventTimedOut
	// EventPermissionDenied is sent when camera access was refused
	EventPermissionDenied
)

func (k EventKind) String() string {
	switch k {
	case EventHint:
		return "hint"
	case EventCaptured:
		return "captured"
	case EventCancelled:
		return "cancelled"
	case EventTimedOut:
		return "timed_out"
	case EventPermissionDenied:
		return "permission_denied"
	}

	return "unknown"
}

// Terminal reports whether the event ends the session
func (k EventKind) Terminal() bool {
	return k != EventHint
}

// Event is delivered on the session's event channel
type Event struct {
	Kind EventKind
	// Hints are set for EventHint
	Hints []string
	// Image is set for EventCaptured
	Image *CapturedImage
	// Err is set for EventPermissionDenied
	Err error
}

// Hint returns the hints as a single line
func (e Event) Hint() string {
	return strings.Join(e.Hints, ". ")
}

// State is the position of a session in its capture state machine
type State int32

const (
	StateIdle State = iota
	StateAnalyzing
	StateSharpnessCheck
	StateCaptured
	StateCancelled
	StateTimedOut
	StatePermissionDenied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateSharpnessCheck:
		return "sharpness_check"
	case StateCaptured:
		return "captured"
	case StateCancelled:
		return "cancelled"
	case StateTimedOut:
		return "timed_out"
	case StatePermissionDenied:
		return "permission_denied"
	}

	return "unknown"
}

// Terminal reports whether no further frames are processed in this state
func (s State) Terminal() bool {
	return s >= StateCaptured
}

// Stats are the frame counters of a session
type Stats struct {
	// FramesReceived counts frames handed to Submit or Process
	FramesReceived uint64
	// FramesDropped counts frames discarded unprocessed, because the
	// session was busy, a newer frame replaced them or the session ended
	FramesDropped uint64
	// FramesAnalyzed counts frames that went through detection
	FramesAnalyzed uint64
	// DecodeFailures counts frames that could not be converted
	DecodeFailures uint64
	// DetectorFailures counts failed detector calls
	DetectorFailures uint64
	// SharpnessRejections counts fired captures rejected as blurred
	SharpnessRejections uint64
}

// counters is the concurrently updated form of Stats
type counters struct {
	received            atomic.Uint64
	dropped             atomic.Uint64
	analyzed            atomic.Uint64
	decodeFailures      atomic.Uint64
	detectorFailures    atomic.Uint64
	sharpnessRejections atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesReceived:      c.received.Load(),
		FramesDropped:       c.dropped.Load(),
		FramesAnalyzed:      c.analyzed.Load(),
		DecodeFailures:      c.decodeFailures.Load(),
		DetectorFailures:    c.detectorFailures.Load(),
		SharpnessRejections: c.sharpnessRejections.Load(),
	}
}
