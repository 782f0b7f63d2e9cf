// Package pose predicts head orientation as a pure function of time.
//
// The warp core treats head-pose prediction as an external collaborator:
// given a timestamp, it wants the view matrix the head will have at that
// instant. The producer queries it once per frame (for the predicted
// display time of the content it is about to render) and the warp
// consumer queries it twice per refresh (refresh start and refresh end)
// to compute the re-projection endpoints.
package pose

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Predictor is the head-pose prediction contract.
//
// Implementations must be pure functions of time: calling ViewMatrixAt
// twice with the same timestamp returns the same matrix, and the method
// is safe for concurrent use from the producer and consumer threads.
type Predictor interface {
	// ViewMatrixAt returns the predicted view matrix at time t.
	ViewMatrixAt(t time.Time) mgl32.Mat4
}

// Fixed is a Predictor that always returns the same view matrix.
// Useful for tests and for running the benchmark with head tracking
// disabled.
type Fixed struct {
	View mgl32.Mat4
}

// Identity returns a Fixed predictor with an identity view matrix.
func Identity() Fixed {
	return Fixed{View: mgl32.Ident4()}
}

// ViewMatrixAt implements Predictor.
func (f Fixed) ViewMatrixAt(time.Time) mgl32.Mat4 {
	return f.View
}
