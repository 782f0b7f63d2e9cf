package pose

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SmoothConfig configures a Smooth head-motion model.
//
// Rotation disabling is an explicit configuration field here, not a
// process-wide flag: constructing a Smooth with Frozen=true yields a
// predictor that reports the epoch pose forever.
type SmoothConfig struct {
	// YawAmplitude is the peak yaw excursion in radians. Default 0.5.
	YawAmplitude float32

	// PitchAmplitude is the peak pitch excursion in radians. Default 0.2.
	PitchAmplitude float32

	// Period is the duration of one full oscillation. Default 4s.
	Period time.Duration

	// Frozen disables head motion entirely (pose locked to the epoch
	// orientation). The scene still renders and the warp loop still
	// runs; the delta transforms degenerate to identity.
	Frozen bool
}

// Smooth models a viewer smoothly sweeping their head: sinusoidal yaw
// with a slower sinusoidal pitch, phase-locked to a fixed epoch.
//
// Deterministic: the pose at time t depends only on t and the epoch, so
// producer and consumer see a consistent trajectory no matter when they
// sample it.
type Smooth struct {
	cfg   SmoothConfig
	epoch time.Time
}

// NewSmooth creates a Smooth motion model anchored at the current time.
func NewSmooth(cfg SmoothConfig) *Smooth {
	if cfg.YawAmplitude == 0 {
		cfg.YawAmplitude = 0.5
	}
	if cfg.PitchAmplitude == 0 {
		cfg.PitchAmplitude = 0.2
	}
	if cfg.Period <= 0 {
		cfg.Period = 4 * time.Second
	}
	return &Smooth{cfg: cfg, epoch: time.Now()}
}

// ViewMatrixAt implements Predictor.
//
// The view matrix is the inverse of the head's rotation: a head yawed
// left sees the world rotated right. Pitch runs at half the yaw rate so
// the trajectory does not close on itself every period.
func (s *Smooth) ViewMatrixAt(t time.Time) mgl32.Mat4 {
	if s.cfg.Frozen {
		return mgl32.Ident4()
	}

	phase := float32(t.Sub(s.epoch).Seconds() / s.cfg.Period.Seconds())
	yaw := s.cfg.YawAmplitude * math32.Sin(2*math32.Pi*phase)
	pitch := s.cfg.PitchAmplitude * math32.Sin(math32.Pi*phase)

	head := mgl32.HomogRotate3DY(yaw).Mul4(mgl32.HomogRotate3DX(pitch))
	return head.Inv()
}
