// Package fence provides completion tokens for asynchronous GPU work.
//
// A Fence is polled, never waited on: the warp consumer checks fences
// with Signaled() each refresh and simply keeps displaying the previous
// frame while they are pending. A fence that never signals degrades to
// "last good frame forever", it never blocks the warp loop.
package fence

import (
	"sync/atomic"
	"time"
)

// Fence is an opaque completion token for a batch of GPU work.
//
// Implementations must guarantee:
//   - Signaled() is non-blocking and safe for concurrent use
//   - Once Signaled() returns true it returns true forever
type Fence interface {
	// Signaled reports whether the associated work has completed.
	Signaled() bool
}

// Timer is a Fence that signals once a deadline has passed.
//
// The benchmark producer uses Timer fences to model GPU execution time:
// the fence is submitted together with the simulated command batch and
// signals after the configured GPU duration has elapsed.
type Timer struct {
	deadline time.Time
	done     atomic.Bool
}

// Submit creates a Timer fence that signals after d has elapsed.
func Submit(d time.Duration) *Timer {
	return &Timer{deadline: time.Now().Add(d)}
}

// Signaled implements Fence. Latches: once true, always true.
func (f *Timer) Signaled() bool {
	if f.done.Load() {
		return true
	}
	if time.Now().Before(f.deadline) {
		return false
	}
	f.done.Store(true)
	return true
}

// Manual is a Fence signaled explicitly by the test or caller.
//
// Used in tests to hold a submission in the "GPU not finished" state for
// as long as the scenario requires.
type Manual struct {
	sig atomic.Bool
}

// NewManual creates an unsignaled Manual fence.
func NewManual() *Manual {
	return &Manual{}
}

// Signal marks the fence as completed. Idempotent.
func (f *Manual) Signal() {
	f.sig.Store(true)
}

// Signaled implements Fence.
func (f *Manual) Signaled() bool {
	return f.sig.Load()
}

// Signaled is a Fence that is already completed at creation.
// Convenience for tests and for content rendered synchronously.
type Signaled struct{}

// Signaled implements Fence.
func (Signaled) Signaled() bool { return true }
