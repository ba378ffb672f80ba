package facecapture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-facecapture/detector"
	"github.com/swdee/go-facecapture/preprocess"
	"github.com/swdee/go-facecapture/quality"
)

// defaultEventBuffer is the capacity of the event channel
const defaultEventBuffer = 16

// DetectorFactory creates the face detector of a session.  It is called
// lazily when the first frame is analyzed and again after Reconfigure.
type DetectorFactory func(cfg Config) (detector.Detector, error)

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger, slog.Default is used otherwise
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithPermissionCheck sets a function run by Start before any frame is
// processed.  An error ends the session as permission denied.
func WithPermissionCheck(fn func(ctx context.Context) error) Option {
	return func(s *Session) {
		s.permission = fn
	}
}

// WithEventBuffer sets the capacity of the event channel.  Hint events are
// dropped when the buffer is full, terminal events never are.
func WithEventBuffer(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.events = make(chan Event, n)
		}
	}
}

// Session runs the capture pipeline over a stream of camera frames until a
// sharp, well posed, still face has been captured or the session ends
type Session struct {
	id          string
	cfg         Config
	log         *slog.Logger
	newDetector DetectorFactory
	permission  func(ctx context.Context) error
	store       *Store

	// state only touched by the goroutine holding guard
	det        detector.Detector
	thresholds quality.Thresholds
	motion     *quality.MotionGate
	best       *quality.BestShotGate
	lastHint   string
	frameNo    uint64

	guard inFlight
	mbox  *mailbox
	stats counters
	state atomic.Int32

	evMu     sync.Mutex
	events   chan Event
	evClosed bool

	// mu guards cfg writes, timer and started
	mu        sync.Mutex
	timer     *time.Timer
	started   time.Time
	startOnce sync.Once
	endOnce   sync.Once
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSession returns a session that has not yet been started.  Frames can
// be analyzed synchronously with Process without starting it.
func NewSession(cfg Config, newDetector DetectorFactory, opts ...Option) (*Session, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if newDetector == nil {
		return nil, errors.New("detector factory is required")
	}

	store, err := NewStore(cfg.CacheDir, cfg.JPEGQuality)

	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:          uuid.NewString(),
		newDetector: newDetector,
		store:       store,
		log:         slog.Default(),
		mbox:        newMailbox(),
		events:      make(chan Event, defaultEventBuffer),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}

	s.applyConfig(cfg)

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With("session", s.id)

	return s, nil
}

// StartCaptureSession creates and starts a session.  If the permission
// check fails the session is returned already ended together with an error
// wrapping ErrPermissionDenied.
func StartCaptureSession(ctx context.Context, cfg Config, newDetector DetectorFactory,
	opts ...Option) (*Session, error) {

	s, err := NewSession(cfg, newDetector, opts...)

	if err != nil {
		return nil, err
	}

	return s, s.Start(ctx)
}

// applyConfig sets the configuration and builds fresh gates from it
func (s *Session) applyConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.thresholds = cfg.Thresholds()
	s.motion = quality.NewMotionGate(cfg.VelocityThreshold, cfg.MotionStable, cfg.EMAAlpha)
	s.motion.SetDeadBand(cfg.DeadBand)
	s.best = quality.NewBestShotGate(cfg.Stable)
	s.lastHint = ""
}

// Start runs the permission check, removes stale captures, arms the session
// timeout and starts the worker consuming submitted frames.  Cancelling ctx
// cancels the session.
func (s *Session) Start(ctx context.Context) error {

	first := false
	s.startOnce.Do(func() { first = true })

	if !first {
		return errors.New("session already started")
	}

	if s.State().Terminal() {
		return ErrSessionClosed
	}

	if s.permission != nil {
		if err := s.permission(ctx); err != nil {
			s.denyPermission(err)
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}

	cfg := s.Config()

	if n, err := s.store.Cleanup(cfg.CacheMaxAge); err != nil {
		s.log.Warn("capture cache cleanup failed", "error", err)
	} else if n > 0 {
		s.log.Debug("removed stale captures", "count", n)
	}

	s.mu.Lock()
	s.started = time.Now()
	s.timer = time.AfterFunc(cfg.SessionTimeout, func() {
		s.finish(StateTimedOut, Event{Kind: EventTimedOut})
	})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.done:
		}
	}()

	s.log.Info("capture session started", "timeout", cfg.SessionTimeout)

	return nil
}

// run is the worker loop, it exits once the session has ended
func (s *Session) run() {
	defer s.wg.Done()

	for {
		f := s.mbox.take()

		if f == nil {
			return
		}

		err := s.process(s.ctx, f)

		if err != nil && !errors.Is(err, ErrSessionClosed) {
			s.log.Debug("frame skipped", "error", err)
		}
	}
}

// Submit hands a frame to the worker and returns immediately.  The session
// takes ownership of the frame and releases it in every case.  A frame
// arriving while another is being analyzed is dropped with ErrBusy.
func (s *Session) Submit(f *preprocess.Frame) error {

	s.stats.received.Add(1)

	if s.State().Terminal() {
		s.drop(f)
		return ErrSessionClosed
	}

	if s.guard.active() {
		s.drop(f)
		return ErrBusy
	}

	if !s.mbox.put(f) {
		s.drop(f)
		return ErrSessionClosed
	}

	return nil
}

// Process runs one analysis cycle on the frame in the calling goroutine and
// releases it.  Per frame failures are returned but leave the session
// running, the next frame is an implicit retry.
func (s *Session) Process(ctx context.Context, f *preprocess.Frame) error {
	s.stats.received.Add(1)
	return s.process(ctx, f)
}

func (s *Session) drop(f *preprocess.Frame) {
	f.Release()
	s.stats.dropped.Add(1)
}

func (s *Session) process(ctx context.Context, f *preprocess.Frame) error {
	defer f.Release()

	if s.State().Terminal() {
		s.stats.dropped.Add(1)
		return ErrSessionClosed
	}

	if !s.guard.tryAcquire() {
		s.stats.dropped.Add(1)
		return ErrBusy
	}

	err := s.analyze(ctx, f)
	s.guard.release()

	// the session may have ended while this cycle held the guard, in which
	// case tearing down the detector was left to us
	if s.State().Terminal() && s.guard.tryAcquire() {
		s.closeDetector()
		s.guard.release()
	}

	return err
}

// analyze is a single pass of the capture state machine, called with the
// guard held
func (s *Session) analyze(ctx context.Context, f *preprocess.Frame) error {

	if !s.transition(StateAnalyzing) {
		return ErrSessionClosed
	}

	defer s.transition(StateIdle)

	s.stats.analyzed.Add(1)
	s.frameNo++
	log := s.log.With("frame", s.frameNo)

	img, err := preprocess.Upright(f)

	if err != nil {
		s.stats.decodeFailures.Add(1)
		return fmt.Errorf("error decoding frame: %w", err)
	}

	defer img.Close()

	det, err := s.detector()

	if err != nil {
		s.stats.detectorFailures.Add(1)
		return fmt.Errorf("error creating detector: %w", err)
	}

	faces, err := det.Detect(ctx, img)

	if err != nil {
		s.stats.detectorFailures.Add(1)
		return fmt.Errorf("error detecting faces: %w", err)
	}

	// the session ended while the detector ran, discard the result
	if s.State().Terminal() {
		return ErrSessionClosed
	}

	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	w, h := img.Cols(), img.Rows()
	assessment := s.thresholds.Evaluate(detector.Observations(faces), w, h)

	still := false

	if len(faces) == 1 {
		still = s.motion.Update(faces[0].TrackID, faces[0].Pose(), ts)
	} else {
		s.motion.Reset()
	}

	if !s.best.Update(assessment.Passed && still, ts) {
		s.emitHints(assessment.Hints)
		return nil
	}

	log.Debug("best shot fired", "box", faces[0].Box, "track", faces[0].TrackID)

	return s.capture(f, faces[0], w, h, ts, log)
}

// capture crops the face region out of the raw frame, checks it is sharp
// and if so writes it out and ends the session
func (s *Session) capture(f *preprocess.Frame, face detector.Face, w, h int,
	ts time.Time, log *slog.Logger) error {

	if !s.transition(StateSharpnessCheck) {
		return ErrSessionClosed
	}

	box := preprocess.ExpandClamp(face.Box, s.cfg.Padding, w, h)
	raw := preprocess.UprightToRaw(box, f.Rotation, f.Width, f.Height)

	region, aligned, err := preprocess.DecodeRegion(f, raw)

	if err != nil {
		s.best.Reset()
		s.stats.decodeFailures.Add(1)
		return fmt.Errorf("error decoding capture region %v: %w", aligned, err)
	}

	defer region.Close()

	pic, err := region.ToImage()

	if err != nil {
		s.best.Reset()
		return fmt.Errorf("error reading capture region: %w", err)
	}

	score := quality.Sharpness(pic, s.cfg.SharpnessMaxSide)

	if score < s.cfg.MinSharpness {
		s.best.Reset()
		s.stats.sharpnessRejections.Add(1)
		log.Debug("capture rejected as blurred", "sharpness", score,
			"min", s.cfg.MinSharpness)
		return nil
	}

	out, err := preprocess.Finish(region, f.Rotation, s.cfg.Mirror)

	if err != nil {
		s.best.Reset()
		return fmt.Errorf("error orienting capture: %w", err)
	}

	defer out.Close()

	captured, err := s.store.Save(out, ts)

	if err != nil {
		s.best.Reset()
		return err
	}

	captured.Sharpness = score

	// no further frame may reach the detector once a capture is accepted
	s.closeDetector()

	if !s.finish(StateCaptured, Event{Kind: EventCaptured, Image: captured}) {
		if err := s.store.Remove(captured.Handle); err != nil {
			log.Warn("failed removing discarded capture", "error", err)
		}
		return ErrSessionClosed
	}

	log.Info("face captured", "path", captured.Path, "sharpness", score,
		"width", captured.Width, "height", captured.Height)

	return nil
}

// detector returns the session detector, creating it on first use
func (s *Session) detector() (detector.Detector, error) {

	if s.det != nil {
		return s.det, nil
	}

	det, err := s.newDetector(s.cfg)

	if err != nil {
		return nil, err
	}

	s.det = det

	return det, nil
}

// closeDetector releases the detector, the caller must hold the guard
func (s *Session) closeDetector() {

	if s.det == nil {
		return
	}

	if err := s.det.Close(); err != nil {
		s.log.Warn("error closing detector", "error", err)
	}

	s.det = nil
}

// Reconfigure replaces the session configuration.  The detector is closed
// and created again with the new settings on the next frame, gate state
// starts over.  The session timeout stays measured from Start, a changed
// SessionTimeout re-arms the timer for whatever time is left.  It fails
// with ErrBusy while a frame is being analyzed.
func (s *Session) Reconfigure(cfg Config) error {

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if s.State().Terminal() {
		return ErrSessionClosed
	}

	if !s.guard.tryAcquire() {
		return ErrBusy
	}

	defer s.guard.release()

	old := s.cfg.SessionTimeout

	s.closeDetector()
	s.applyConfig(cfg)

	if cfg.SessionTimeout != old {
		s.rearmTimeout(cfg.SessionTimeout)
	}

	return nil
}

// rearmTimeout moves the session deadline to timeout after Start.  A
// deadline already passed fires at once.
func (s *Session) rearmTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil {
		return
	}

	left := time.Until(s.started.Add(timeout))
	if left < 0 {
		left = 0
	}

	s.timer.Reset(left)
}

// transition moves to a non terminal state, it fails once the session has
// ended
func (s *Session) transition(to State) bool {
	for {
		cur := State(s.state.Load())

		if cur.Terminal() {
			return false
		}

		if s.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

// finish moves the session to a terminal state and delivers ev.  Only the
// first call has any effect, it reports whether this call ended the session.
func (s *Session) finish(state State, ev Event) bool {

	ended := false

	s.endOnce.Do(func() {
		ended = true

		s.state.Store(int32(state))

		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()

		s.cancel()
		s.mbox.close()
		s.emitTerminal(ev)
		close(s.done)
	})

	if !ended {
		return false
	}

	// an in flight cycle closes the detector itself when it completes
	if s.guard.tryAcquire() {
		s.closeDetector()
		s.guard.release()
	}

	s.log.Info("capture session ended", "state", state)

	return true
}

// Cancel ends the session, it is a no-op if it already ended
func (s *Session) Cancel() {
	s.finish(StateCancelled, Event{Kind: EventCancelled})
}

// DenyPermission ends the session because camera access was refused
func (s *Session) DenyPermission() {
	s.denyPermission(nil)
}

func (s *Session) denyPermission(cause error) {

	err := ErrPermissionDenied
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrPermissionDenied, cause)
	}

	s.finish(StatePermissionDenied, Event{Kind: EventPermissionDenied, Err: err})
}

// emitHints sends a hint event when the hints differ from the last sent
func (s *Session) emitHints(hints []string) {

	key := strings.Join(hints, "\n")

	if key == s.lastHint {
		return
	}

	s.lastHint = key

	s.evMu.Lock()
	defer s.evMu.Unlock()

	if s.evClosed {
		return
	}

	select {
	case s.events <- Event{Kind: EventHint, Hints: hints}:
	default:
		s.log.Debug("event buffer full, hint dropped")
	}
}

// emitTerminal delivers the final event, making room by discarding the
// oldest buffered event if needed, and closes the channel
func (s *Session) emitTerminal(ev Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()

	if s.evClosed {
		return
	}

	for {
		select {
		case s.events <- ev:
			close(s.events)
			s.evClosed = true
			return
		default:
		}

		select {
		case <-s.events:
		default:
		}
	}
}

// ID returns the unique session identifier
func (s *Session) ID() string {
	return s.id
}

// Config returns the active configuration
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Store returns the store captures are written to
func (s *Session) Store() *Store {
	return s.store
}

// Events returns the channel session events are delivered on.  It is closed
// after the terminal event.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the session has ended
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session has ended and the worker has exited
func (s *Session) Wait() {
	<-s.done
	s.wg.Wait()
}

// State returns the current state of the session
func (s *Session) State() State {
	return State(s.state.Load())
}

// Stats returns the session frame counters
func (s *Session) Stats() Stats {
	st := s.stats.snapshot()
	st.FramesDropped += s.mbox.dropped()
	return st
}
