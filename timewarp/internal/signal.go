// Package internal implements the eye-texture mailbox and frame timing
// predictor behind the timewarp public API.
//
// This package is INTERNAL - clients MUST use the public API in the
// parent package. Reason: allows internal refactoring without breaking
// changes.
package internal

import "sync"

// signal is a binary semaphore built on a condition variable.
//
// Two signals coordinate the producer/consumer hand-off and their
// re-arm timing differs, which is why they are two independent objects
// and not one:
//
//   - slot-consumed: auto-reset. The producer's Wait consumes the
//     token, the consumer Raises it once per adoption.
//   - vsync-occurred: manual-reset. The consumer Raises it once per
//     refresh and Clears it only on adoption; the producer's Wait
//     observes it without consuming, so a producer that publishes
//     within one refresh is throttled exactly once per adopted frame,
//     never once per raw vsync.
//
// Thread-safety: all methods safe for concurrent use.
type signal struct {
	mu        sync.Mutex
	cond      *sync.Cond
	raised    bool
	closed    bool
	autoReset bool
}

// newSignal creates a signal. autoReset selects whether Wait consumes
// the raised state; raised selects the initial state.
func newSignal(autoReset, raised bool) *signal {
	s := &signal{autoReset: autoReset, raised: raised}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Raise sets the signal and wakes all waiters. Idempotent.
func (s *signal) Raise() {
	s.mu.Lock()
	s.raised = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Clear resets the signal. Waiters already past Wait are unaffected.
func (s *signal) Clear() {
	s.mu.Lock()
	s.raised = false
	s.mu.Unlock()
}

// Wait blocks until the signal is raised or the signal is closed.
//
// Returns false when the signal was closed (shutdown release): the
// caller must abandon the operation, not retry. On a normal wake with
// autoReset the raised state is consumed.
func (s *signal) Wait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.raised && !s.closed {
		s.cond.Wait()
	}

	if s.closed {
		return false
	}
	if s.autoReset {
		s.raised = false
	}
	return true
}

// Close permanently releases the signal: every current and future Wait
// returns false. Idempotent. Used by the mailbox shutdown path so a
// producer blocked in Publish can never deadlock against a consumer
// that has already stopped.
func (s *signal) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}
