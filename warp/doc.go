// Package warp drives the display-synchronized consumer loop: the
// per-refresh state machine that paces itself to just before vsync,
// samples the mailbox without blocking, decides whether to adopt new
// content, invokes the re-projection render, and republishes timing
// and frame-rate statistics.
//
// One iteration per display refresh:
//
//	1. Pace    - sleep until ~half a refresh period before the next
//	             vsync: late enough to use fresh data, early enough to
//	             finish the warp render before the refresh.
//	2. Sample  - TrySample the mailbox; apply the adoption rule.
//	3. Warp    - derive start/end re-projection transforms from the
//	             active submission's render-time pose and two freshly
//	             predicted poses (refresh start and refresh end).
//	4. Render  - invoke the selected re-projection strategy.
//	5. Account - roll the 20-refresh frame-rate window.
//	6. Present - release the producer's per-refresh throttle.
//
// The loop has no natural terminal state; it runs until its context is
// cancelled, at which point it closes the mailbox so a producer blocked
// in Publish is released before shared resources are torn down.
package warp
