package warp

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DeltaRotation computes the rotation-only correction between the view
// matrix content was rendered with and a freshly predicted view matrix:
//
//	delta = rotation(renderView) * rotation(predictedView)⁻¹
//
// Translation is intentionally discarded from both inputs before
// composing, so the delta's translation component is exactly zero by
// construction. This technique corrects rotation only, bounding the
// re-projection error to rotation-induced parallax; positional
// correction is a known approximation gap, not a defect.
func DeltaRotation(renderView, predictedView mgl32.Mat4) mgl32.Mat4 {
	render := rotationOnly(renderView)
	predicted := rotationOnly(predictedView)
	return render.Mul4(predicted.Inv())
}

// rotationOnly strips the translation column and bottom row, leaving
// the pure rotation part of a rigid view matrix.
func rotationOnly(m mgl32.Mat4) mgl32.Mat4 {
	m[12], m[13], m[14] = 0, 0, 0
	m[3], m[7], m[11] = 0, 0, 0
	m[15] = 1
	return m
}

// TexCoordProjection converts a [-1,1] clip-space projection matrix
// into [0,1] texture space, so warped tan-angle rays land directly on
// texture coordinates after the perspective divide.
func TexCoordProjection(p mgl32.Mat4) mgl32.Mat4 {
	var m mgl32.Mat4
	m.Set(0, 0, 0.5*p.At(0, 0))
	m.Set(0, 2, 0.5*p.At(0, 2)-0.5)
	m.Set(1, 1, 0.5*p.At(1, 1))
	m.Set(1, 2, 0.5*p.At(1, 2)-0.5)
	m.Set(2, 2, -1)
	m.Set(3, 2, -1)
	return m
}

// TimeWarpTransform derives one re-projection endpoint: the rotation
// delta between render-time and predicted view, projected through the
// original projection converted to texture space. The scheduler
// computes two of these (refresh start, refresh end) and the renderer
// interpolates between them per fragment across the display span.
func TimeWarpTransform(projection, renderView, predictedView mgl32.Mat4) mgl32.Mat4 {
	return TexCoordProjection(projection).Mul4(DeltaRotation(renderView, predictedView))
}
