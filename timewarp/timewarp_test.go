package timewarp_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/e7canasta/warpbench/fence"
	"github.com/e7canasta/warpbench/timewarp"
)

// stubDisplay is a minimal vsync source for mailbox tests: fixed period,
// next vsync derived from a fixed epoch.
type stubDisplay struct {
	epoch  time.Time
	period time.Duration
}

func newStubDisplay(period time.Duration) *stubDisplay {
	return &stubDisplay{epoch: time.Now(), period: period}
}

func (d *stubDisplay) NextVsyncTime() time.Time {
	n := time.Since(d.epoch)/d.period + 1
	return d.epoch.Add(n * d.period)
}

func (d *stubDisplay) RefreshPeriod() time.Duration  { return d.period }
func (d *stubDisplay) ScanoutDuration() time.Duration { return 0 }

func (d *stubDisplay) DelayUntil(before time.Duration) time.Time {
	target := d.NextVsyncTime()
	time.Sleep(time.Until(target.Add(-before)))
	return target
}

func newTestMailbox(t *testing.T) (timewarp.Mailbox, *timewarp.FrameTiming) {
	t.Helper()
	timing := timewarp.NewFrameTiming()
	mb, err := timewarp.New(timewarp.Config{
		Display: newStubDisplay(16 * time.Millisecond),
		Timing:  timing,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return mb, timing
}

func testSubmission(seq uint64) timewarp.Submission {
	return timewarp.Submission{
		SequenceIndex:    seq,
		FrameIndex:       int64(seq),
		DisplayTime:      time.Now(),
		View:             mgl32.Ident4(),
		Projection:       mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100),
		CompletionFences: [2]fence.Fence{fence.Signaled{}, fence.Signaled{}},
		ArrayLayers:      [2]int{0, 1},
	}
}

// --- Frame timing extrapolation ---

// TestPredictLinearExtrapolation validates the predictor contract:
// predicted = vsyncTime + (target - frameIndex) * framePeriod.
//
// Fixed points: vsyncTime=1000ms, framePeriod=16ms, frameIndex=5 →
// predict(7)=1032ms, predict(5)=1000ms, predict(4)=984ms.
func TestPredictLinearExtrapolation(t *testing.T) {
	timing := timewarp.NewFrameTiming()
	timing.Record(timewarp.TimingSample{
		FrameIndex:  5,
		VsyncTime:   time.UnixMilli(1000),
		FramePeriod: 16 * time.Millisecond,
	})

	cases := []struct {
		frameIndex int64
		wantMilli  int64
	}{
		{7, 1032},
		{5, 1000},
		{4, 984},
	}
	for _, tc := range cases {
		got := timing.Predict(tc.frameIndex)
		if got.UnixMilli() != tc.wantMilli {
			t.Errorf("Predict(%d) = %dms, want %dms", tc.frameIndex, got.UnixMilli(), tc.wantMilli)
		}
	}

	t.Logf("✅ Linear extrapolation fixed points hold")
}

// TestPredictBeforeFirstSample validates the startup default: without a
// recorded sample, Predict returns approximately the current time and
// callers tolerate the slightly-wrong prediction.
func TestPredictBeforeFirstSample(t *testing.T) {
	timing := timewarp.NewFrameTiming()

	got := timing.Predict(42)
	if d := time.Since(got); d < -time.Second || d > time.Second {
		t.Errorf("Predict before first sample = %v, want ~now", got)
	}

	if _, ok := timing.Sample(); ok {
		t.Error("Sample() reported valid before any Record")
	}

	t.Logf("✅ Startup prediction defaults to now")
}

// --- TrySample non-blocking guarantee ---

// TestTrySampleEmptyMailbox validates that sampling before any publish
// reports no data immediately rather than blocking.
func TestTrySampleEmptyMailbox(t *testing.T) {
	mb, _ := newTestMailbox(t)
	defer mb.Close()

	start := time.Now()
	if _, ok := mb.TrySample(); ok {
		t.Error("TrySample() reported data on an empty mailbox")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("TrySample() took %v, want immediate return", elapsed)
	}

	t.Logf("✅ TrySample on empty mailbox is an immediate no-data")
}

// TestTrySampleCopiesSlot validates that a published submission is
// observable (repeatedly - sampling does not consume) with its metadata
// intact.
func TestTrySampleCopiesSlot(t *testing.T) {
	mb, _ := newTestMailbox(t)
	defer mb.Close()

	done := make(chan error, 1)
	go func() {
		sub := testSubmission(1)
		sub.TraceID = "trace-1"
		done <- mb.Publish(sub)
	}()

	// Publish writes the slot before blocking on the vsync throttle,
	// so the data is observable while the producer is still inside
	// Publish.
	waitForData(t, mb)

	for i := 0; i < 3; i++ {
		sub, ok := mb.TrySample()
		if !ok {
			t.Fatalf("TrySample() #%d lost the slot contents", i)
		}
		if sub.SequenceIndex != 1 || sub.TraceID != "trace-1" {
			t.Fatalf("TrySample() = seq %d trace %q, want seq 1 trace \"trace-1\"",
				sub.SequenceIndex, sub.TraceID)
		}
	}

	// Release the blocked producer.
	mb.MarkConsumed()
	mb.NotifyVsync()
	if err := <-done; err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	t.Logf("✅ Slot contents copied out intact, sampling does not consume")
}

// --- At-most-one-ahead ---

// TestAtMostOneAhead validates the core backpressure property: publish
// N+1 cannot return before submission N was consumed and one vsync
// elapsed, and publish N+2 cannot start before N+1 was consumed.
//
// Scenario:
//  1. Producer publishes 1, 2, 3 back to back on its own goroutine.
//  2. Publish(1) passes the (initially raised) slot-consumed gate and
//     blocks on the vsync throttle.
//  3. Each consumer adoption + vsync releases exactly one publish.
func TestAtMostOneAhead(t *testing.T) {
	mb, _ := newTestMailbox(t)
	defer mb.Close()

	published := make(chan uint64, 3)
	go func() {
		for seq := uint64(1); seq <= 3; seq++ {
			if err := mb.Publish(testSubmission(seq)); err != nil {
				return
			}
			published <- seq
		}
	}()

	// Publish(1) must not complete before any vsync.
	assertNoProgress(t, published, "Publish(1) before first vsync")

	// First vsync releases publish(1) only.
	mb.NotifyVsync()
	assertProgress(t, published, 1)

	// Publish(2) is now gated on slot-consumed: submission 1 has not
	// been examined yet.
	assertNoProgress(t, published, "Publish(2) before submission 1 consumed")

	// Adopt submission 1: raises slot-consumed, clears the vsync
	// signal. Publish(2) advances to the vsync throttle.
	if sub, ok := mb.TrySample(); !ok || sub.SequenceIndex != 1 {
		t.Fatalf("TrySample() = %v, want submission 1", sub.SequenceIndex)
	}
	mb.MarkConsumed()
	assertNoProgress(t, published, "Publish(2) before post-adoption vsync")

	mb.NotifyVsync()
	assertProgress(t, published, 2)

	// Publish(3) gated again on consumption of submission 2.
	assertNoProgress(t, published, "Publish(3) before submission 2 consumed")

	t.Logf("✅ Producer never more than one publish ahead of consumption")
}

// --- Throttle re-arm semantics ---

// TestThrottleReArmOnAdoptionOnly validates that the vsync throttle is
// re-armed once per adopted frame, not once per raw vsync: a producer
// that missed K refreshes is released after ONE post-adoption vsync,
// not penalized K times.
//
// Scenario:
//  1. Publish(1) completes normally.
//  2. Publish(2) blocks on slot-consumed while the consumer spins for
//     K=5 refreshes without adopting (fences "not ready").
//  3. The consumer finally adopts submission 1. Because the vsync
//     signal stayed raised across the K missed refreshes and is only
//     cleared at adoption, publish(2) then needs exactly one more
//     vsync to complete.
func TestThrottleReArmOnAdoptionOnly(t *testing.T) {
	mb, _ := newTestMailbox(t)
	defer mb.Close()

	published := make(chan uint64, 2)
	go func() {
		for seq := uint64(1); seq <= 2; seq++ {
			if err := mb.Publish(testSubmission(seq)); err != nil {
				return
			}
			published <- seq
		}
	}()

	mb.NotifyVsync()
	assertProgress(t, published, 1)

	// K refreshes go by without adoption. The throttle signal is
	// raised repeatedly (idempotent), never cleared.
	for k := 0; k < 5; k++ {
		mb.NotifyVsync()
	}
	assertNoProgress(t, published, "Publish(2) while submission 1 unconsumed")

	// Single adoption then single vsync releases publish(2).
	mb.MarkConsumed()
	mb.NotifyVsync()
	assertProgress(t, published, 2)

	t.Logf("✅ Missed refreshes cost the producer one stall, not K")
}

// --- Shutdown release ---

// TestCloseReleasesBlockedProducer validates the shutdown contract: a
// producer blocked inside Publish returns promptly with ErrClosed once
// the mailbox is closed, on both blocking points.
//
// Failing to release here is a deadlock, not a crash - which is why it
// gets its own test.
func TestCloseReleasesBlockedProducer(t *testing.T) {
	// Blocking point 1: the vsync throttle (first publish).
	mb, _ := newTestMailbox(t)
	done := make(chan error, 1)
	go func() { done <- mb.Publish(testSubmission(1)) }()
	assertBlocked(t, done, "Publish(1) on vsync throttle")

	if err := mb.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, timewarp.ErrClosed) {
			t.Errorf("Publish() after Close = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Publish() still blocked 1s after Close (deadlock)")
	}

	// Blocking point 2: the slot-consumed gate (second publish while
	// the first was never examined).
	mb2, _ := newTestMailbox(t)
	done2 := make(chan error, 2)
	go func() {
		done2 <- mb2.Publish(testSubmission(1))
		done2 <- mb2.Publish(testSubmission(2))
	}()
	mb2.NotifyVsync() // release publish(1)
	if err := <-done2; err != nil {
		t.Fatalf("Publish(1) failed: %v", err)
	}
	assertBlocked(t, done2, "Publish(2) on slot-consumed gate")

	if err := mb2.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	select {
	case err := <-done2:
		if !errors.Is(err, timewarp.ErrClosed) {
			t.Errorf("Publish() after Close = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Publish() still blocked 1s after Close (deadlock)")
	}

	t.Logf("✅ Close releases both publish blocking points")
}

// TestCloseIdempotent validates Close and post-Close behavior.
func TestCloseIdempotent(t *testing.T) {
	mb, _ := newTestMailbox(t)

	if err := mb.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := mb.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
	if err := mb.Publish(testSubmission(1)); !errors.Is(err, timewarp.ErrClosed) {
		t.Errorf("Publish() after Close = %v, want ErrClosed", err)
	}
	if !mb.Stats().Closed {
		t.Error("Stats().Closed = false after Close")
	}

	t.Logf("✅ Close idempotent, Publish fails fast afterwards")
}

// TestPublishWarnsOnNonMonotonicSequence validates the publish-side
// sequence contract: a sequence index that does not advance is logged
// as a violation but still stored - never silently fixed up, never
// rejected.
func TestPublishWarnsOnNonMonotonicSequence(t *testing.T) {
	var buf bytes.Buffer
	timing := timewarp.NewFrameTiming()
	mb, err := timewarp.New(timewarp.Config{
		Display: newStubDisplay(16 * time.Millisecond),
		Timing:  timing,
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer mb.Close()

	done := make(chan error, 2)
	go func() {
		done <- mb.Publish(testSubmission(5))
		done <- mb.Publish(testSubmission(5)) // repeated index
	}()

	mb.NotifyVsync()
	if err := <-done; err != nil {
		t.Fatalf("Publish(first) failed: %v", err)
	}
	mb.MarkConsumed()
	mb.NotifyVsync()
	if err := <-done; err != nil {
		t.Fatalf("Publish(second) failed: %v", err)
	}

	if got := strings.Count(buf.String(), "non-monotonic"); got != 1 {
		t.Errorf("non-monotonic warning logged %d times, want exactly 1 (output: %q)",
			got, buf.String())
	}
	if sub, ok := mb.TrySample(); !ok || sub.SequenceIndex != 5 {
		t.Error("violating submission not stored in the slot")
	}

	t.Logf("✅ Non-monotonic publish is logged once, stored as-is")
}

// TestPublishRecordsTimingSample validates step 4 of Publish: a
// completed publish leaves a fresh sample in the predictor.
func TestPublishRecordsTimingSample(t *testing.T) {
	mb, timing := newTestMailbox(t)
	defer mb.Close()

	done := make(chan error, 1)
	go func() { done <- mb.Publish(testSubmission(7)) }()

	waitForData(t, mb)
	mb.MarkConsumed()
	mb.NotifyVsync()
	if err := <-done; err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	sample, ok := timing.Sample()
	if !ok {
		t.Fatal("no timing sample recorded by Publish")
	}
	if sample.FrameIndex != 7 {
		t.Errorf("sample.FrameIndex = %d, want 7", sample.FrameIndex)
	}
	if sample.FramePeriod != 16*time.Millisecond {
		t.Errorf("sample.FramePeriod = %v, want 16ms", sample.FramePeriod)
	}

	t.Logf("✅ Publish records a fresh timing sample for the predictor")
}

// --- helpers ---

// waitForData polls until the slot holds a submission (the producer
// goroutine has completed step 2 of Publish).
func waitForData(t *testing.T, mb timewarp.Mailbox) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := mb.TrySample(); ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("slot never received data")
}

// assertProgress expects the producer to complete the publish of seq.
func assertProgress(t *testing.T, published <-chan uint64, seq uint64) {
	t.Helper()
	select {
	case got := <-published:
		if got != seq {
			t.Fatalf("publish completed out of order: got %d, want %d", got, seq)
		}
	case <-time.After(time.Second):
		t.Fatalf("Publish(%d) did not complete within 1s", seq)
	}
}

// assertNoProgress expects the producer to stay blocked. 50ms is ample:
// the release paths under test complete in microseconds when armed.
func assertNoProgress(t *testing.T, published <-chan uint64, what string) {
	t.Helper()
	select {
	case got := <-published:
		t.Fatalf("%s: publish %d completed, want blocked", what, got)
	case <-time.After(50 * time.Millisecond):
	}
}

// assertBlocked expects no error to arrive on done yet.
func assertBlocked(t *testing.T, done <-chan error, what string) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("%s: returned %v, want blocked", what, err)
	case <-time.After(50 * time.Millisecond):
	}
}
