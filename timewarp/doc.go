// Package timewarp implements the asynchronous eye-texture hand-off
// between a scene-rendering producer and a display-synchronized warp
// consumer.
//
// # Philosophy
//
// "Warp never waits. Stale > Late."
//
// The display refreshes on a fixed cadence whether or not the scene
// renderer kept up. The mailbox therefore hands the consumer whatever
// complete frame is most recent and lets it keep re-displaying the
// last adopted frame when nothing newer is ready. A producer that runs
// slow degrades scene frame rate; it never degrades warp frame rate.
//
// # Architecture
//
// One single-slot mailbox sits between exactly one producer and one
// consumer:
//
//	scene thread → Publish → [slot] → TrySample → warp thread
//	        ↑  slot-consumed signal (raised on adoption)  ↓
//	        ↑  vsync-occurred signal (raised per refresh) ↓
//
// Publish blocks briefly on two signals ("previous slot examined" and
// "at least one vsync elapsed"); TrySample never blocks. The two
// signals are deliberately independent objects because their re-arm
// timing differs: slot-consumed auto-resets on wait, vsync-occurred is
// cleared by the consumer only upon successful adoption.
//
// # Backpressure
//
// The single slot is the intended backpressure point. Under sustained
// producer slowdown the display keeps refreshing every vsync with the
// most recently completed frame. Under sustained consumer slowdown
// (which the display pacing is designed to prevent) frames queue behind
// the slot and the producer stalls in Publish.
//
// # Basic Usage
//
// Producer side:
//
//	timing := timewarp.NewFrameTiming()
//	mb, _ := timewarp.New(timewarp.Config{Display: disp, Timing: timing})
//
//	for frameIndex := int64(0); ; frameIndex++ {
//	    displayTime := timing.Predict(frameIndex)
//	    sub := renderScene(frameIndex, displayTime)
//	    if err := mb.Publish(sub); err != nil {
//	        return // mailbox closed, shut down
//	    }
//	}
//
// Consumer side (per refresh, see the warp package for the full loop):
//
//	if sub, ok := mb.TrySample(); ok && adoptable(sub) {
//	    active = sub
//	    mb.MarkConsumed()
//	}
//	renderWarp(active)
//	mb.NotifyVsync()
//
// # Shutdown
//
// Close releases any producer blocked inside Publish by raising both
// signals before shared GPU resources are torn down. Closing the
// mailbox before stopping the consumer is mandatory; the alternative is
// a producer deadlock.
//
// # Thread Safety
//
// Publish: producer thread only. TrySample, MarkConsumed, NotifyVsync:
// consumer thread only. Close, Stats, and FrameTiming methods: any
// goroutine. The mutex protects only the small metadata struct in the
// slot - GPU memory safety is fence-mediated, never mutex-mediated.
package timewarp
