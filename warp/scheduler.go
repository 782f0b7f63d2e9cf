package warp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/warpbench/display"
	"github.com/e7canasta/warpbench/pose"
	"github.com/e7canasta/warpbench/reproject"
	"github.com/e7canasta/warpbench/timewarp"
)

// FrameStats is pushed to the statistics sink once per refresh. The
// scheduler has no dependency on how the values are displayed.
type FrameStats struct {
	// VsyncTime is the refresh this record belongs to.
	VsyncTime time.Time

	// Adopted reports whether fresh content was adopted this refresh.
	Adopted bool

	// FrameIndex and TraceID identify the submission on screen.
	FrameIndex int64
	TraceID    string

	// WarpFPS and SceneFPS are the rolling window rates: every refresh
	// executed vs refreshes with fresh content.
	WarpFPS  float64
	SceneFPS float64

	// WarpCPUTime and WarpGPUTime are this refresh's re-projection cost.
	WarpCPUTime time.Duration
	WarpGPUTime time.Duration

	// SceneCPUTime and SceneGPUTime are forwarded producer-side samples.
	SceneCPUTime time.Duration
	SceneGPUTime time.Duration
}

// StatsSink receives per-refresh statistics for external visualization.
type StatsSink interface {
	Push(FrameStats)
}

// Config configures a Scheduler.
type Config struct {
	// Mailbox is the producer hand-off to sample. Required.
	Mailbox timewarp.Mailbox

	// Display paces the loop. Required.
	Display display.Display

	// Renderer executes the re-projection pass. Required.
	Renderer reproject.Renderer

	// Pose predicts head orientation at display time. Required.
	Pose pose.Predictor

	// Stats receives one FrameStats per refresh. Optional.
	Stats StatsSink

	// ChromaticAberration toggles per-channel corrective sampling in
	// the re-projection pass.
	ChromaticAberration bool

	// StrictSequence panics on out-of-order adoption instead of logging
	// it. Meant for development builds; a release scheduler logs the
	// contract violation and carries on.
	StrictSequence bool

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Scheduler is the per-refresh warp control loop.
//
// Goroutine topology: Run owns the consumer thread; no other goroutine
// touches the loop state. Stats() may be called from any goroutine.
type Scheduler struct {
	cfg Config

	// --- Loop state (consumer thread only) ---

	active    timewarp.Submission
	hasActive bool

	// lastAdopted is written by the consumer thread only; atomic so
	// Stats can read it from any goroutine.
	lastAdopted atomic.Uint64

	// --- Observability ---

	statsMu  sync.Mutex
	window   rateWindow
	warpFPS  float64
	sceneFPS float64

	refreshes atomic.Uint64
	adoptions atomic.Uint64
}

// SchedulerStats is a snapshot of scheduler operational state.
type SchedulerStats struct {
	// Refreshes counts loop iterations (warp executions).
	Refreshes uint64

	// Adoptions counts refreshes that adopted fresh content.
	Adoptions uint64

	// LastAdoptedSequence is the newest adopted sequence index.
	LastAdoptedSequence uint64

	// WarpFPS and SceneFPS are the rolling window rates.
	WarpFPS  float64
	SceneFPS float64
}

// New creates a Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Mailbox == nil {
		return nil, fmt.Errorf("warp: config requires a Mailbox")
	}
	if cfg.Display == nil {
		return nil, fmt.Errorf("warp: config requires a Display")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("warp: config requires a Renderer")
	}
	if cfg.Pose == nil {
		return nil, fmt.Errorf("warp: config requires a Pose predictor")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{cfg: cfg}, nil
}

// Run executes the warp loop until ctx is cancelled, then closes the
// mailbox so a producer blocked in Publish is released before any
// shared resource teardown. Blocks for the life of the session; run it
// on its own goroutine.
//
// Returns ctx.Err() on cancellation, or the render error if the
// re-projection pass fails (resource failures are unrecoverable for
// the session and propagate upward, no retry loop here).
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.cfg.Mailbox.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.iterate(); err != nil {
			return err
		}
	}
}

// iterate is one refresh worth of the state machine (steps 1-6).
func (s *Scheduler) iterate() error {
	d := s.cfg.Display
	period := d.RefreshPeriod()

	// 1. Pace: wake ~period/2 before the next vsync.
	nextVsync := d.DelayUntil(period / 2)

	// 2. Sample and maybe adopt.
	adopted := s.sample(nextVsync, period)

	// 3+4. Warp the active submission. Before the first adoption there
	// is nothing to display yet; the loop still paces and releases the
	// throttle so startup cannot deadlock.
	var timing reproject.Timing
	if s.hasActive {
		var err error
		timing, err = s.renderWarp(nextVsync)
		if err != nil {
			return fmt.Errorf("warp: re-projection render failed: %w", err)
		}
	}

	// 5. Account.
	s.statsMu.Lock()
	s.window.record(nextVsync, adopted)
	s.warpFPS, s.sceneFPS = s.window.rates()
	warpFPS, sceneFPS := s.warpFPS, s.sceneFPS
	s.statsMu.Unlock()
	s.refreshes.Add(1)

	if s.cfg.Stats != nil {
		s.cfg.Stats.Push(FrameStats{
			VsyncTime:    nextVsync,
			Adopted:      adopted,
			FrameIndex:   s.active.FrameIndex,
			TraceID:      s.active.TraceID,
			WarpFPS:      warpFPS,
			SceneFPS:     sceneFPS,
			WarpCPUTime:  timing.CPUTime,
			WarpGPUTime:  timing.GPUTime,
			SceneCPUTime: s.active.CPUTime,
			SceneGPUTime: s.active.GPUTime,
		})
	}

	// 6. Present & release the per-refresh throttle.
	s.cfg.Mailbox.NotifyVsync()
	return nil
}

// sample applies the adoption rule to the current mailbox contents.
//
// A sampled submission is adoptable only if ALL of:
//
//	(a) its sequence index is newer than the last adopted one,
//	(b) its display time is not later than next vsync + half a refresh
//	    period (never adopt content meant for the far future),
//	(c) both completion fences report signaled.
//
// Condition (c) failing is the normal "producer hasn't finished yet"
// case, not an error: the consumer keeps displaying the previously
// adopted content. That graceful re-display is the core degradation
// property - time warp never waits for the renderer.
func (s *Scheduler) sample(nextVsync time.Time, period time.Duration) bool {
	sub, ok := s.cfg.Mailbox.TrySample()
	if !ok {
		return false
	}
	lastAdopted := s.lastAdopted.Load()
	if sub.SequenceIndex <= lastAdopted {
		return false // already adopted or superseded
	}
	if sub.DisplayTime.After(nextVsync.Add(period / 2)) {
		return false // meant for the far future
	}
	if !sub.FencesSignaled() {
		return false // GPU still producing, keep last good frame
	}

	// Contract: with a single producer and the slot-consumed gate,
	// adopted indices advance by exactly one. A gap means the hand-off
	// was skipped or duplicated - a programming error, never silently
	// fixed up.
	if s.hasActive && sub.SequenceIndex != lastAdopted+1 {
		if s.cfg.StrictSequence {
			panic(fmt.Sprintf("warp: adopted sequence %d, want %d",
				sub.SequenceIndex, lastAdopted+1))
		}
		s.cfg.Logger.Warn("warp: sequence gap on adoption",
			"sequence", sub.SequenceIndex,
			"expected", lastAdopted+1,
			"trace_id", sub.TraceID)
	}

	s.active = sub
	s.hasActive = true
	s.lastAdopted.Store(sub.SequenceIndex)
	s.adoptions.Add(1)

	s.cfg.Mailbox.MarkConsumed()
	return true
}

// renderWarp computes the two re-projection endpoints and invokes the
// configured strategy.
//
// The start transform targets the refresh start, the end transform the
// refresh end; on rolling-scanout panels the two differ and the
// renderer interpolates between them per fragment. On global-refresh
// displays the scanout span is zero and the endpoints coincide.
func (s *Scheduler) renderWarp(nextVsync time.Time) (reproject.Timing, error) {
	// Stale-storage check: the target ring plus the slot-consumed gate
	// make reuse-while-displayed impossible under the contract, so a
	// generation mismatch is a hand-off bug worth flagging loudly.
	for eye, target := range s.active.RenderTargets {
		if target != nil && target.Generation != s.active.Generations[eye] {
			s.cfg.Logger.Warn("warp: render target storage reused while on screen",
				"eye", eye,
				"target", target.Label,
				"generation", target.Generation,
				"adopted_generation", s.active.Generations[eye],
				"trace_id", s.active.TraceID)
		}
	}

	refreshStart := nextVsync
	refreshEnd := nextVsync.Add(s.cfg.Display.ScanoutDuration())

	startT := TimeWarpTransform(s.active.Projection, s.active.View,
		s.cfg.Pose.ViewMatrixAt(refreshStart))
	endT := TimeWarpTransform(s.active.Projection, s.active.View,
		s.cfg.Pose.ViewMatrixAt(refreshEnd))

	return s.cfg.Renderer.Render(reproject.Params{
		StartTransform:      startT,
		EndTransform:        endT,
		Targets:             s.active.RenderTargets,
		ArrayLayers:         s.active.ArrayLayers,
		ChromaticAberration: s.cfg.ChromaticAberration,
	})
}

// Stats returns an operational snapshot (non-blocking, safe from any
// goroutine).
func (s *Scheduler) Stats() SchedulerStats {
	s.statsMu.Lock()
	warpFPS, sceneFPS := s.warpFPS, s.sceneFPS
	s.statsMu.Unlock()

	return SchedulerStats{
		Refreshes:           s.refreshes.Load(),
		Adoptions:           s.adoptions.Load(),
		LastAdoptedSequence: s.lastAdopted.Load(),
		WarpFPS:             warpFPS,
		SceneFPS:            sceneFPS,
	}
}
