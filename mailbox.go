package facecapture

import (
	"sync"
	"sync/atomic"

	"github.com/swdee/go-facecapture/preprocess"
)

// inFlight guards the analysis cycle so only one frame is ever being
// detected and gated at a time
type inFlight struct {
	busy atomic.Bool
}

// tryAcquire takes the guard, returning false if a cycle is in progress
func (g *inFlight) tryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *inFlight) release() {
	g.busy.Store(false)
}

func (g *inFlight) active() bool {
	return g.busy.Load()
}

// mailbox is a single slot frame buffer between Submit and the worker.  A
// new frame overwrites one not yet taken, the overwritten frame is released.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *preprocess.Frame
	closed bool
	// drops counts frames overwritten before the worker took them
	drops uint64
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// put stores the frame for the worker.  It returns false, without taking
// ownership of the frame, once the mailbox is closed.
func (m *mailbox) put(f *preprocess.Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	if m.frame != nil {
		m.frame.Release()
		m.drops++
	}

	m.frame = f
	m.cond.Signal()

	return true
}

// take blocks until a frame is available, returning nil after close
func (m *mailbox) take() *preprocess.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}

	if m.closed {
		return nil
	}

	f := m.frame
	m.frame = nil

	return f
}

// close wakes the worker and releases any frame still waiting
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true

	if m.frame != nil {
		m.frame.Release()
		m.frame = nil
		m.drops++
	}

	m.cond.Broadcast()
}

// dropped returns the number of frames overwritten or discarded on close
func (m *mailbox) dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}
