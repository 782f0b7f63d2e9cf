package internal

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/e7canasta/warpbench/fence"
	"github.com/e7canasta/warpbench/reproject"
)

// Submission is one fully-described producer frame handed through the
// mailbox: render targets, the matrices the content was rendered with,
// completion fences, and timing.
//
// Ownership: RenderTargets reference storage owned by the producer's
// target ring, never by the mailbox. A reference is valid from Publish
// until the producer's next write to the same storage, which the
// slot-consumed release makes safe; the GPU-side contents are guarded
// separately by the fences.
//
// Contract:
//   - SequenceIndex MUST be strictly increasing across publishes from
//     a single producer (violations are a programming error, see
//     Mailbox.Publish)
//   - The consumer MUST NOT read a render target whose fence has not
//     signaled
type Submission struct {
	// SequenceIndex is assigned by the producer at publish time.
	// Strictly increasing; lets the consumer detect "newer than what I
	// already adopted".
	SequenceIndex uint64

	// FrameIndex is the logical simulation frame number, used to look
	// up and predict display times.
	FrameIndex int64

	// DisplayTime is the time this content was predicted to be shown
	// at, computed by the producer before rendering so the source
	// matrices match the predicted head pose at that instant.
	DisplayTime time.Time

	// View and Projection are the transform pair the content was
	// rendered with. The display-time re-projection derives its delta
	// from View against freshly predicted poses.
	View       mgl32.Mat4
	Projection mgl32.Mat4

	// RenderTargets holds one color target reference per stereo eye.
	RenderTargets [2]*reproject.RenderTarget

	// Generations captures each target's Generation at publish time, so
	// the consumer can detect the producer reusing the storage while the
	// submission is still on screen.
	Generations [2]uint64

	// CompletionFences signal when each eye's GPU rendering finished.
	CompletionFences [2]fence.Fence

	// ArrayLayers selects which slice of a (possibly shared, multiview)
	// target each eye occupies.
	ArrayLayers [2]int

	// CPUTime and GPUTime are producer-side timing samples, forwarded
	// purely for statistics display.
	CPUTime time.Duration
	GPUTime time.Duration

	// TraceID identifies the submission end to end in logs and stats.
	TraceID string
}

// FencesSignaled reports whether both eyes' GPU work has completed.
// Non-blocking poll; called by the consumer as adoption condition (c).
func (s *Submission) FencesSignaled() bool {
	for _, f := range s.CompletionFences {
		if f == nil || !f.Signaled() {
			return false
		}
	}
	return true
}
