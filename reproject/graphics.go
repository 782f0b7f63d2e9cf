package reproject

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// GraphicsConfig configures the rasterization-style warp strategy.
type GraphicsConfig struct {
	// Bands is the number of horizontal scanline bands the display span
	// is split into. Each band gets its own interpolated transform,
	// matching how a fragment shader interpolates per-scanline on a
	// rolling display. Default 32.
	Bands int
}

// Graphics is the rasterization-pipeline style re-projection strategy.
//
// The warp is evaluated on the CPU over a coarse scanline grid standing
// in for the fragment stage: band by band, the start/end transforms are
// interpolated, the band's tan-angle rays are pushed through the
// transform, and the resulting texture coordinates are folded into a
// checksum. GPU cost is modeled from the resolved pixel count.
type Graphics struct {
	cfg GraphicsConfig
}

// NewGraphics creates the graphics strategy.
func NewGraphics(cfg GraphicsConfig) *Graphics {
	if cfg.Bands <= 0 {
		cfg.Bands = 32
	}
	return &Graphics{cfg: cfg}
}

// Render implements Renderer.
func (g *Graphics) Render(p Params) (Timing, error) {
	if err := validate(p); err != nil {
		return Timing{}, err
	}
	start := time.Now()

	var sink float32
	for eye := 0; eye < 2; eye++ {
		for band := 0; band < g.cfg.Bands; band++ {
			// Band center as a fraction of the scanout span.
			frac := (float32(band) + 0.5) / float32(g.cfg.Bands)
			m := lerpMat4(p.StartTransform, p.EndTransform, frac)

			y := 2*frac - 1
			sink += sampleSpan(m, y, p.ChromaticAberration)
		}
	}
	_ = sink

	return Timing{
		CPUTime: time.Since(start),
		GPUTime: modelGPUTime(p, graphicsNsPerPixel),
	}, nil
}

// graphicsNsPerPixel models fullscreen-quad fragment cost.
const graphicsNsPerPixel = 0.50

// sampleSpan warps the left, center and right rays of one scanline and
// returns their folded texture coordinates. With chromatic aberration
// each ray is sampled three times with per-channel radial offsets.
func sampleSpan(m mgl32.Mat4, y float32, chromatic bool) float32 {
	var acc float32
	for _, x := range [3]float32{-1, 0, 1} {
		if chromatic {
			// Red and blue taps at slightly different radial scales.
			acc += warpU(m, x*0.996, y*0.996)
			acc += warpU(m, x, y)
			acc += warpU(m, x*1.004, y*1.004)
		} else {
			acc += warpU(m, x, y)
		}
	}
	return acc
}

// warpU pushes a tan-angle ray through the warp transform and returns
// its U texture coordinate after the perspective divide.
func warpU(m mgl32.Mat4, x, y float32) float32 {
	v := m.Mul4x1(mgl32.Vec4{x, y, -1, 1})
	w := v.W()
	if w == 0 {
		return 0
	}
	return v.X() / w
}

// lerpMat4 interpolates two transforms component-wise, the same way
// the display span interpolation behaves per-fragment.
func lerpMat4(a, b mgl32.Mat4, t float32) mgl32.Mat4 {
	for i := range a {
		a[i] += (b[i] - a[i]) * t
	}
	return a
}

// modelGPUTime derives a simulated GPU duration from the pass size.
func modelGPUTime(p Params, nsPerPixel float64) time.Duration {
	pixels := 0
	for eye := 0; eye < 2; eye++ {
		pixels += p.Targets[eye].Width * p.Targets[eye].Height
	}
	taps := 1.0
	if p.ChromaticAberration {
		taps = 3.0
	}
	return time.Duration(float64(pixels) * nsPerPixel * taps)
}
