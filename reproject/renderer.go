// Package reproject renders a previously-rasterized stereo frame
// through a corrective time-warp transform.
//
// Two interchangeable strategies implement the same contract: a
// rasterization-style renderer that warps scanline bands, and a
// compute-style renderer that warps tiles. They are selectable at
// runtime and functionally equivalent; the scheduler does not care
// which one it drives.
package reproject

import (
	"fmt"
	"strings"
)

// Renderer is the re-projection contract consumed by the warp scheduler.
//
// Implementations must guarantee:
//   - Render never blocks on producer-side state (the scheduler has
//     already verified fences before handing over targets)
//   - Render is called from the consumer thread only
type Renderer interface {
	// Render executes one re-projection pass and reports its cost.
	Render(p Params) (Timing, error)
}

// Kind selects a re-projection strategy.
type Kind int

const (
	// KindGraphics uses the rasterization-pipeline style warp.
	KindGraphics Kind = iota
	// KindCompute uses the compute-dispatch style warp.
	KindCompute
)

// String returns the CLI name of the kind.
func (k Kind) String() string {
	switch k {
	case KindGraphics:
		return "graphics"
	case KindCompute:
		return "compute"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a CLI strategy name ("graphics" or "compute").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "graphics":
		return KindGraphics, nil
	case "compute":
		return KindCompute, nil
	default:
		return 0, fmt.Errorf("reproject: unknown renderer kind %q (want graphics or compute)", s)
	}
}

// New creates a renderer of the given kind with default configuration.
func New(kind Kind) (Renderer, error) {
	switch kind {
	case KindGraphics:
		return NewGraphics(GraphicsConfig{}), nil
	case KindCompute:
		return NewCompute(ComputeConfig{}), nil
	default:
		return nil, fmt.Errorf("reproject: unknown renderer kind %v", kind)
	}
}

// validate checks the parts of Params both strategies require.
func validate(p Params) error {
	for eye := 0; eye < 2; eye++ {
		t := p.Targets[eye]
		if t == nil {
			return fmt.Errorf("reproject: eye %d has no render target", eye)
		}
		if p.ArrayLayers[eye] < 0 || p.ArrayLayers[eye] >= t.Layers {
			return fmt.Errorf("reproject: eye %d layer %d out of range (target %q has %d layers)",
				eye, p.ArrayLayers[eye], t.Label, t.Layers)
		}
	}
	return nil
}
