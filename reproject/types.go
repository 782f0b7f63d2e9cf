package reproject

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// RenderTarget describes one externally-owned stereo color target.
//
// Ownership: targets live in the producer's fixed ring; the mailbox and
// the renderer only hold references. A reference stays valid from
// publish until the producer reuses the underlying storage, which the
// slot-consumed release guarantees cannot happen before the consumer
// has finished sampling it. Generation increments each time the
// producer reuses the storage, so stale references are detectable.
type RenderTarget struct {
	// ID uniquely identifies the underlying storage for tracing.
	ID uuid.UUID

	// Label is a human-readable name ("eye-ring-0").
	Label string

	// Width and Height of one eye layer in pixels.
	Width  int
	Height int

	// Layers is the array-slice count (2 for a shared multiview target).
	Layers int

	// Generation counts how many times this storage has been reused.
	Generation uint64
}

// Params carries everything one re-projection pass needs.
//
// StartTransform and EndTransform are the warp endpoints for refresh
// start and refresh end; the strategy interpolates between them across
// the display span. On global-refresh displays the two are equal.
type Params struct {
	StartTransform mgl32.Mat4
	EndTransform   mgl32.Mat4

	// Targets and ArrayLayers select the source image per stereo eye.
	Targets     [2]*RenderTarget
	ArrayLayers [2]int

	// ChromaticAberration enables per-channel corrective sampling
	// (three taps per fragment instead of one).
	ChromaticAberration bool
}

// Timing reports the cost of one re-projection pass.
type Timing struct {
	CPUTime time.Duration
	GPUTime time.Duration
}
