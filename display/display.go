// Package display abstracts the vertical-refresh timing source that
// paces the warp consumer loop.
//
// The warp scheduler only needs three things from a display: when the
// next vsync happens, how long a refresh period is, and a way to sleep
// until shortly before the next vsync. Scanout duration is exposed
// separately so rolling-refresh panels (which present the image over a
// span of time, top to bottom) can be warped with distinct start/end
// transforms; global-refresh panels report a zero span.
package display

import "time"

// Display is the contract for a vertical-refresh timing source.
//
// Implementations must guarantee:
//   - NextVsyncTime() is monotonically non-decreasing across calls
//   - RefreshPeriod() is constant for the life of the display
//   - All methods are safe for concurrent use (producer queries timing
//     while the consumer paces itself)
type Display interface {
	// NextVsyncTime returns the predicted time of the next vertical sync.
	NextVsyncTime() time.Time

	// RefreshPeriod returns the duration of one refresh interval.
	RefreshPeriod() time.Duration

	// ScanoutDuration returns how long the panel takes to present one
	// image top to bottom. Zero for global-refresh displays.
	ScanoutDuration() time.Duration

	// DelayUntil sleeps until `before` ahead of the next vsync.
	// DelayUntil(8ms) on a 60Hz display wakes ~8ms before the sync point.
	// Returns the vsync time it paced against.
	DelayUntil(before time.Duration) time.Time
}
