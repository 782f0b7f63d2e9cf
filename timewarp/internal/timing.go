package internal

import (
	"sync"
	"time"
)

// TimingSample is one observation of display timing, written once per
// consumer loop iteration and read by the producer to predict a display
// time for a future frame index.
type TimingSample struct {
	// FrameIndex is the logical frame the observation belongs to.
	FrameIndex int64

	// VsyncTime is the vsync that frame was (or will be) presented at.
	VsyncTime time.Time

	// FramePeriod is the measured refresh period.
	FramePeriod time.Duration
}

// FrameTiming converts a frame index into a predicted display time by
// linear extrapolation from the most recent TimingSample:
//
//	predicted = VsyncTime + (target - FrameIndex) * FramePeriod
//
// Extrapolation, not measurement: the predicted value is consumed by
// the producer, which must commit to a pose and start rendering before
// the real vsync happens. Clock jitter therefore appears directly as
// pose-prediction error, which the warp stage partially compensates.
//
// Thread-safety: Record and Predict are safe for concurrent use; the
// critical section is a non-blocking copy of one small struct.
type FrameTiming struct {
	mu     sync.Mutex
	sample TimingSample
	valid  bool
}

// NewFrameTiming creates an empty predictor.
func NewFrameTiming() *FrameTiming {
	return &FrameTiming{}
}

// Record stores a fresh timing observation. Called from the producer's
// Publish path, once per published frame.
func (t *FrameTiming) Record(s TimingSample) {
	t.mu.Lock()
	t.sample = s
	t.valid = true
	t.mu.Unlock()
}

// Predict returns the predicted display time for frameIndex.
//
// Before the first Record the prediction is simply "now": callers must
// tolerate an initial slightly-wrong prediction (the warp stage absorbs
// it). There are no error conditions.
func (t *FrameTiming) Predict(frameIndex int64) time.Time {
	t.mu.Lock()
	s, ok := t.sample, t.valid
	t.mu.Unlock()

	if !ok {
		return time.Now()
	}
	return s.VsyncTime.Add(time.Duration(frameIndex-s.FrameIndex) * s.FramePeriod)
}

// Sample returns the latest observation and whether one exists yet.
func (t *FrameTiming) Sample() (TimingSample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sample, t.valid
}
