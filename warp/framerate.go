package warp

import "time"

// rateWindowSize is the fixed trailing window the frame-rate counters
// roll over, in refreshes.
const rateWindowSize = 20

type refreshRecord struct {
	at    time.Time
	fresh bool // fresh content adopted this refresh
}

// rateWindow tracks two rates over the trailing window: "this refresh
// executed at all" (warp frame rate) and "fresh content adopted this
// refresh" (scene frame rate). Used only for external reporting; no
// scheduling decision reads it.
//
// Not thread-safe: owned by the consumer loop, snapshots taken under
// the scheduler's stats mutex.
type rateWindow struct {
	records [rateWindowSize]refreshRecord
	next    int
	count   int
}

// record appends one refresh observation, evicting the oldest once the
// window is full.
func (w *rateWindow) record(at time.Time, fresh bool) {
	w.records[w.next] = refreshRecord{at: at, fresh: fresh}
	w.next = (w.next + 1) % rateWindowSize
	if w.count < rateWindowSize {
		w.count++
	}
}

// rates returns (warpFPS, sceneFPS) over the window. Needs at least two
// refreshes to have a measurable span; reports zeros before that.
//
// warpFPS counts the count-1 refresh intervals inside the span. The
// scene rate uses the same convention, scaled by the fraction of
// refreshes that adopted fresh content, so both rates share one
// fencepost and sceneFPS equals warpFPS when every refresh is fresh.
func (w *rateWindow) rates() (float64, float64) {
	if w.count < 2 {
		return 0, 0
	}

	oldest := (w.next - w.count + rateWindowSize) % rateWindowSize
	newest := (w.next - 1 + rateWindowSize) % rateWindowSize
	span := w.records[newest].at.Sub(w.records[oldest].at).Seconds()
	if span <= 0 {
		return 0, 0
	}

	freshCount := 0
	for i := 0; i < w.count; i++ {
		if w.records[(oldest+i)%rateWindowSize].fresh {
			freshCount++
		}
	}

	warpFPS := float64(w.count-1) / span
	sceneFPS := warpFPS * float64(freshCount) / float64(w.count)
	return warpFPS, sceneFPS
}
