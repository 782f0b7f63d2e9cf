package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/e7canasta/warpbench/display"
)

// ErrClosed is returned by Publish when the mailbox has been closed.
// A producer blocked inside Publish during shutdown unblocks with this
// error rather than deadlocking.
var ErrClosed = errors.New("timewarp: mailbox closed")

// Config configures a Mailbox.
type Config struct {
	// Display is the vsync timing source queried when recording fresh
	// timing samples at the end of Publish. Required.
	Display display.Display

	// Timing receives one TimingSample per successful Publish and
	// serves the producer's display-time predictions. Required.
	Timing *FrameTiming

	// Logger for contract-violation warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// Mailbox is the single-slot producer/consumer hand-off of one eye
// texture submission between the scene thread and the warp thread.
//
// Exactly one submission occupies the slot at a time. Two signals
// coordinate the threads:
//
//   - slotConsumed (auto-reset, initially raised: slot empty and
//     ready): guarantees the previous submission has been examined by
//     the consumer before being overwritten, so the producer can never
//     race ahead by more than one frame of mailbox storage.
//   - vsyncOccurred (manual-reset, initially cleared): the deliberate
//     additional throttle bounding producer-side latency to roughly one
//     refresh. Raised by the consumer once per completed refresh,
//     cleared only upon successful adoption - see MarkConsumed.
//
// Goroutine topology: one producer thread calls Publish, one consumer
// thread calls TrySample/MarkConsumed/NotifyVsync. No other goroutines
// participate in the hand-off.
type Mailbox struct {
	// --- Slot (metadata only; GPU memory is fence-guarded, not
	// mutex-guarded) ---

	mu      sync.Mutex
	slot    Submission
	hasData bool

	// --- Signals ---

	slotConsumed *signal
	vsyncSignal  *signal

	// --- Collaborators ---

	display display.Display
	timing  *FrameTiming
	logger  *slog.Logger

	// --- Observability ---

	published    atomic.Uint64
	lastSequence atomic.Uint64
	closed       atomic.Bool
}

// NewMailbox creates a Mailbox ready for one publish/adopt cycle per
// refresh. Created once at startup, closed once at shutdown.
func NewMailbox(cfg Config) (*Mailbox, error) {
	if cfg.Display == nil {
		return nil, fmt.Errorf("timewarp: config requires a Display")
	}
	if cfg.Timing == nil {
		return nil, fmt.Errorf("timewarp: config requires a FrameTiming")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mailbox{
		slotConsumed: newSignal(true, true),   // auto-reset, slot starts empty
		vsyncSignal:  newSignal(false, false), // manual-reset, no vsync seen yet
		display:      cfg.Display,
		timing:       cfg.Timing,
		logger:       cfg.Logger,
	}, nil
}

// Publish hands a completed frame to the warp consumer. Producer thread
// only.
//
// Algorithm:
//  1. Wait for slot-consumed (infinite) - the consumer has examined the
//     previous submission, overwriting is safe.
//  2. Write the submission into the slot under the mutex.
//  3. Wait for vsync-occurred (infinite) - at least one refresh has
//     elapsed since the current submission was adopted, bounding how
//     far ahead the producer can run.
//  4. Record a fresh TimingSample from the display for the predictor.
//
// Both waits are unbounded in design terms but resolve within roughly
// one refresh period under normal operation; they only hang if the
// consumer has stopped entirely, which Close accounts for.
//
// Returns ErrClosed if the mailbox was closed while blocked (shutdown
// release); the submission may or may not have reached the slot, and
// the producer must stop either way.
func (m *Mailbox) Publish(sub Submission) error {
	if m.closed.Load() {
		return ErrClosed
	}

	// 1. Previous submission examined?
	if !m.slotConsumed.Wait() {
		return ErrClosed
	}

	// 2. Write the slot.
	m.mu.Lock()
	if last := m.lastSequence.Load(); m.published.Load() > 0 && sub.SequenceIndex <= last {
		// Contract violation: sequence indices must be strictly
		// increasing. Never silently fixed up - logged and stored as-is.
		m.logger.Warn("timewarp: non-monotonic sequence index published",
			"sequence", sub.SequenceIndex,
			"last", last,
			"trace_id", sub.TraceID)
	}
	m.slot = sub
	m.hasData = true
	m.mu.Unlock()

	m.lastSequence.Store(sub.SequenceIndex)
	m.published.Add(1)

	// 3. Per-refresh throttle.
	if !m.vsyncSignal.Wait() {
		return ErrClosed
	}

	// 4. Fresh timing for the predictor. The frame just published is
	// expected on the upcoming vsync.
	m.timing.Record(TimingSample{
		FrameIndex:  sub.FrameIndex,
		VsyncTime:   m.display.NextVsyncTime(),
		FramePeriod: m.display.RefreshPeriod(),
	})

	return nil
}

// TrySample returns a copy of the current slot contents. Consumer
// thread only. NEVER blocks: if the mutex is contended (the producer is
// mid-write) or the slot is empty, it reports no data immediately - the
// consumer must keep rendering whatever it last adopted, because
// missing a refresh is not acceptable.
//
// Sampling does not consume the slot; the same submission may be
// observed across several refreshes until adopted (deduplicated by
// SequenceIndex) or overwritten.
func (m *Mailbox) TrySample() (Submission, bool) {
	if !m.mu.TryLock() {
		return Submission{}, false
	}
	defer m.mu.Unlock()

	if !m.hasData {
		return Submission{}, false
	}
	return m.slot, true
}

// MarkConsumed is the consumer's adoption release: raises slot-consumed
// (unblocking the producer's next Publish) and clears vsync-occurred,
// re-arming the per-refresh throttle exactly once per successfully
// adopted frame, not once per raw vsync.
//
// The clear happening here - and only here - is the subtle ordering
// rule: a slow producer that misses adopting this vsync is not
// penalized with an extra stall; the throttle only fires on real
// progress.
func (m *Mailbox) MarkConsumed() {
	m.slotConsumed.Raise()
	m.vsyncSignal.Clear()
}

// NotifyVsync records that a display refresh just completed, releasing
// the producer's per-refresh throttle. Called by the consumer after
// present/swap, once per refresh.
func (m *Mailbox) NotifyVsync() {
	m.vsyncSignal.Raise()
}

// Close releases both signals so any producer blocked in Publish
// returns, then marks the mailbox closed. MUST be called before tearing
// down shared GPU resources - skipping it is a producer deadlock, not a
// crash. Idempotent.
func (m *Mailbox) Close() error {
	if m.closed.Swap(true) {
		return nil // already closed
	}
	m.slotConsumed.Close()
	m.vsyncSignal.Close()
	return nil
}

// Stats returns an operational snapshot (non-blocking).
func (m *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Published:    m.published.Load(),
		LastSequence: m.lastSequence.Load(),
		Closed:       m.closed.Load(),
	}
}
