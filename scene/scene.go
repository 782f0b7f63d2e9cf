// Package scene is the producer side of the benchmark: it renders
// synthetic stereo frames at its own (possibly variable) rate and
// publishes them to the time-warp mailbox.
//
// The producer commits to a head pose before rendering: it predicts the
// display time of the frame it is about to render, queries the pose for
// that instant, and bakes the resulting view matrix into the
// submission. The warp consumer later corrects for however wrong that
// prediction turned out to be.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/e7canasta/warpbench/fence"
	"github.com/e7canasta/warpbench/pose"
	"github.com/e7canasta/warpbench/reproject"
	"github.com/e7canasta/warpbench/timewarp"
)

// Config configures a Producer.
type Config struct {
	// Mailbox receives the published frames. Required.
	Mailbox timewarp.Mailbox

	// Timing predicts display times for upcoming frames. Must be the
	// same FrameTiming the mailbox records into. Required.
	Timing *timewarp.FrameTiming

	// Pose supplies the view matrix for predicted display times. Required.
	Pose pose.Predictor

	// Targets is the render-target ring. Defaults to a 1024x1024
	// two-layer multiview ring.
	Targets *TargetRing

	// CPUTime simulates per-frame scene CPU cost (command generation).
	// The producer sleeps this long before submitting.
	CPUTime time.Duration

	// GPUTime simulates per-frame GPU cost: each eye's completion fence
	// signals this long after submission.
	GPUTime time.Duration

	// FOVDegrees, Near and Far parameterize the eye projection.
	// Defaults: 90, 0.1, 100.
	FOVDegrees float32
	Near, Far  float32

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Producer renders and publishes frames until its context is cancelled
// or the mailbox closes underneath it.
type Producer struct {
	cfg Config

	frames       atomic.Uint64
	lastSequence atomic.Uint64
}

// ProducerStats is a snapshot of producer operational state.
type ProducerStats struct {
	// Frames counts successfully published frames.
	Frames uint64

	// LastSequence is the most recently published sequence index.
	LastSequence uint64
}

// New creates a Producer.
func New(cfg Config) (*Producer, error) {
	if cfg.Mailbox == nil {
		return nil, fmt.Errorf("scene: config requires a Mailbox")
	}
	if cfg.Timing == nil {
		return nil, fmt.Errorf("scene: config requires a FrameTiming")
	}
	if cfg.Pose == nil {
		return nil, fmt.Errorf("scene: config requires a Pose predictor")
	}
	if cfg.Targets == nil {
		cfg.Targets = NewTargetRing(1024, 1024, 2)
	}
	if cfg.FOVDegrees == 0 {
		cfg.FOVDegrees = 90
	}
	if cfg.Near == 0 {
		cfg.Near = 0.1
	}
	if cfg.Far == 0 {
		cfg.Far = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Producer{cfg: cfg}, nil
}

// Run is the producer loop. Blocks for the life of the session; run it
// on its own goroutine.
//
// Per frame:
//  1. Predict the display time for this frame index.
//  2. Query the head pose for that time and build view/projection.
//  3. Render into the next ring target (simulated CPU cost), submit
//     fences that signal after the simulated GPU cost.
//  4. Publish. The mailbox throttles the producer to roughly one frame
//     of latency; a closed mailbox ends the loop cleanly.
//
// Returns ctx.Err() on cancellation, nil when the mailbox closed.
func (p *Producer) Run(ctx context.Context) error {
	p.cfg.Logger.Info("scene: producer started",
		"cpu_time", p.cfg.CPUTime,
		"gpu_time", p.cfg.GPUTime)

	for frameIndex := int64(1); ; frameIndex++ {
		if ctx.Err() != nil {
			p.cfg.Logger.Info("scene: producer stopping", "frames", p.frames.Load())
			return ctx.Err()
		}

		sub := p.renderFrame(frameIndex)

		if err := p.cfg.Mailbox.Publish(sub); err != nil {
			if errors.Is(err, timewarp.ErrClosed) {
				p.cfg.Logger.Info("scene: mailbox closed, producer stopping",
					"frames", p.frames.Load())
				return nil
			}
			return fmt.Errorf("scene: publish failed: %w", err)
		}

		p.frames.Add(1)
		p.lastSequence.Store(sub.SequenceIndex)

		p.cfg.Logger.Debug("scene: frame published",
			"frame", frameIndex,
			"display_time", sub.DisplayTime,
			"trace_id", sub.TraceID)
	}
}

// renderFrame produces one submission: pose committed for the predicted
// display time, both eyes rendered into layers of one shared multiview
// target, fences armed with the simulated GPU duration.
func (p *Producer) renderFrame(frameIndex int64) timewarp.Submission {
	displayTime := p.cfg.Timing.Predict(frameIndex)
	view := p.cfg.Pose.ViewMatrixAt(displayTime)

	target := p.cfg.Targets.Acquire()
	aspect := float32(target.Width) / float32(target.Height)
	proj := mgl32.Perspective(mgl32.DegToRad(p.cfg.FOVDegrees), aspect, p.cfg.Near, p.cfg.Far)

	start := time.Now()
	if p.cfg.CPUTime > 0 {
		time.Sleep(p.cfg.CPUTime)
	}
	cpu := time.Since(start)

	return timewarp.Submission{
		SequenceIndex:    uint64(frameIndex),
		FrameIndex:       frameIndex,
		DisplayTime:      displayTime,
		View:             view,
		Projection:       proj,
		RenderTargets:    [2]*reproject.RenderTarget{target, target},
		Generations:      [2]uint64{target.Generation, target.Generation},
		CompletionFences: [2]fence.Fence{fence.Submit(p.cfg.GPUTime), fence.Submit(p.cfg.GPUTime)},
		ArrayLayers:      [2]int{0, 1},
		CPUTime:          cpu,
		GPUTime:          p.cfg.GPUTime,
		TraceID:          uuid.NewString(),
	}
}

// Stats returns an operational snapshot (non-blocking).
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		Frames:       p.frames.Load(),
		LastSequence: p.lastSequence.Load(),
	}
}
