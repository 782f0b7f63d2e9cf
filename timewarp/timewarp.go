package timewarp

import (
	"github.com/e7canasta/warpbench/timewarp/internal"
)

// Submission is re-exported from the internal package to avoid import
// cycles. See internal/submission.go for full documentation.
type Submission = internal.Submission

// TimingSample is re-exported from the internal package.
// See internal/timing.go for full documentation.
type TimingSample = internal.TimingSample

// FrameTiming is re-exported from the internal package.
// See internal/timing.go for full documentation.
type FrameTiming = internal.FrameTiming

// MailboxStats is re-exported from the internal package.
// See internal/types.go for full documentation.
type MailboxStats = internal.MailboxStats

// Config is re-exported from the internal package.
// See internal/mailbox.go for full documentation.
type Config = internal.Config

// ErrClosed is returned by Publish once the mailbox has been closed.
var ErrClosed = internal.ErrClosed

// Mailbox is the public contract for the single-slot eye-texture
// hand-off.
//
// Design:
//   - Interface (not concrete type) for future extensibility
//   - Lifecycle: New() → Publish()/TrySample() cycles → Close()
//   - Publish: producer thread only; TrySample/MarkConsumed/NotifyVsync:
//     consumer thread only; Close/Stats: any goroutine
//
// Implementation is in internal/mailbox.go (hidden from clients).
type Mailbox interface {
	// Publish hands a completed frame to the consumer, blocking until
	// the previous slot was examined and one vsync has elapsed. Records
	// a fresh timing sample on success. Returns ErrClosed after Close.
	Publish(sub Submission) error

	// TrySample returns a copy of the current slot contents without
	// ever blocking. Reports false if the slot is empty or the mutex
	// is momentarily contended - the consumer keeps displaying its
	// last adopted frame in that case.
	TrySample() (Submission, bool)

	// MarkConsumed is the adoption release: raises slot-consumed and
	// clears vsync-occurred. Call exactly once per adopted submission.
	MarkConsumed()

	// NotifyVsync raises the vsync-occurred signal. Call once per
	// completed refresh, after present/swap.
	NotifyVsync()

	// Close releases any blocked producer and shuts the mailbox down.
	// Must precede teardown of shared GPU resources. Idempotent.
	Close() error

	// Stats returns an operational snapshot (non-blocking).
	Stats() MailboxStats
}

// New creates a Mailbox.
//
// Lifecycle:
//  1. timing := timewarp.NewFrameTiming()
//  2. mb, err := timewarp.New(timewarp.Config{Display: d, Timing: timing})
//  3. producer: mb.Publish(...) / consumer: mb.TrySample(...)
//  4. mb.Close() (consumer teardown, before GPU resource destruction)
func New(cfg Config) (Mailbox, error) {
	return internal.NewMailbox(cfg)
}

// NewFrameTiming creates an empty display-time predictor. The producer
// calls Predict on it; the mailbox records into it on every Publish.
func NewFrameTiming() *FrameTiming {
	return internal.NewFrameTiming()
}
