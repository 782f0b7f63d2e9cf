package display

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SimulatedConfig configures a Simulated display.
type SimulatedConfig struct {
	// RefreshRate in Hz. Must be positive. Typical: 60, 72, 90, 120.
	RefreshRate float64

	// Scanout is the rolling-refresh presentation span. Zero (the
	// default) models a global-refresh panel.
	Scanout time.Duration
}

// Simulated is a fixed-cadence software display clock.
//
// Vsync times are derived from a fixed epoch: vsync N occurs at
// epoch + N*period. This gives the benchmark a perfectly regular
// refresh signal without any windowing system, which is exactly what
// the scheduler needs to measure its own pacing against.
//
// Thread-safety: all methods safe for concurrent use.
type Simulated struct {
	epoch   time.Time
	period  time.Duration
	scanout time.Duration

	vsyncs atomic.Uint64 // number of completed DelayUntil paces (observability)
}

// NewSimulated creates a Simulated display with the given refresh rate.
func NewSimulated(cfg SimulatedConfig) (*Simulated, error) {
	if cfg.RefreshRate <= 0 {
		return nil, fmt.Errorf("display: refresh rate must be positive, got %v", cfg.RefreshRate)
	}
	period := time.Duration(float64(time.Second) / cfg.RefreshRate)
	return &Simulated{
		epoch:   time.Now(),
		period:  period,
		scanout: cfg.Scanout,
	}, nil
}

// NextVsyncTime implements Display.
func (d *Simulated) NextVsyncTime() time.Time {
	elapsed := time.Since(d.epoch)
	n := elapsed/d.period + 1
	return d.epoch.Add(n * d.period)
}

// RefreshPeriod implements Display.
func (d *Simulated) RefreshPeriod() time.Duration {
	return d.period
}

// ScanoutDuration implements Display.
func (d *Simulated) ScanoutDuration() time.Duration {
	return d.scanout
}

// DelayUntil implements Display.
//
// Sleeps until `before` ahead of the next vsync. If that instant is
// already in the past (the caller overran), it targets the following
// vsync instead so the loop re-locks to the cadence rather than
// spinning.
func (d *Simulated) DelayUntil(before time.Duration) time.Time {
	target := d.NextVsyncTime()
	wake := target.Add(-before)
	if !wake.After(time.Now()) {
		target = target.Add(d.period)
		wake = target.Add(-before)
	}
	time.Sleep(time.Until(wake))
	d.vsyncs.Add(1)
	return target
}

// Paces returns how many DelayUntil calls have completed.
func (d *Simulated) Paces() uint64 {
	return d.vsyncs.Load()
}
