package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/e7canasta/warpbench/reproject"
)

// ringSize is the fixed number of render-target buffers the producer
// cycles through. Three buffers: one being scanned out, one adopted and
// waiting, one being rendered into.
const ringSize = 3

// TargetRing is the producer-owned pool of stereo render targets.
//
// Ownership model: the ring owns the storage, the mailbox only ever
// holds references. Acquire hands out targets round-robin; reuse of a
// given buffer is safe because Publish cannot return (and so the
// producer cannot advance ringSize frames) before the consumer released
// the slot holding the buffer's previous reference. No reference
// counting required.
type TargetRing struct {
	targets [ringSize]*reproject.RenderTarget
	next    int
}

// NewTargetRing allocates the ring. width/height are per-eye pixels;
// layers is the array-slice count of each shared target (2 for
// multiview stereo).
func NewTargetRing(width, height, layers int) *TargetRing {
	r := &TargetRing{}
	for i := range r.targets {
		r.targets[i] = &reproject.RenderTarget{
			ID:     uuid.New(),
			Label:  fmt.Sprintf("eye-ring-%d", i),
			Width:  width,
			Height: height,
			Layers: layers,
		}
	}
	return r
}

// Acquire returns the next target in the ring, bumping its generation
// to mark the storage reuse. Producer thread only.
func (r *TargetRing) Acquire() *reproject.RenderTarget {
	t := r.targets[r.next]
	r.next = (r.next + 1) % ringSize
	t.Generation++
	return t
}
