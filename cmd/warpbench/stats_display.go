package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/e7canasta/warpbench/scene"
	"github.com/e7canasta/warpbench/timewarp"
	"github.com/e7canasta/warpbench/warp"
)

// barGraphSink keeps the most recent per-refresh FrameStats for the
// reporter to draw. Push is called from the warp consumer thread once
// per refresh; Latest from the reporter goroutine.
type barGraphSink struct {
	mu     sync.Mutex
	latest warp.FrameStats
	valid  bool
}

func newBarGraphSink() *barGraphSink {
	return &barGraphSink{}
}

// Push implements warp.StatsSink.
func (s *barGraphSink) Push(fs warp.FrameStats) {
	s.mu.Lock()
	s.latest = fs
	s.valid = true
	s.mu.Unlock()
}

// Latest returns the most recent record and whether one exists.
func (s *barGraphSink) Latest() (warp.FrameStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.valid
}

// reportStats periodically prints bar-graph statistics until ctx ends.
func reportStats(
	ctx context.Context,
	config Config,
	sink *barGraphSink,
	scheduler *warp.Scheduler,
	producer *scene.Producer,
	mailbox timewarp.Mailbox,
) {
	ticker := time.NewTicker(config.StatsInterval)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printLiveStats(time.Since(startTime), config, sink, scheduler, producer, mailbox)
		}
	}
}

// printLiveStats draws the two frame-rate bars and the per-stage
// timing breakdown of the most recent refresh.
func printLiveStats(
	uptime time.Duration,
	config Config,
	sink *barGraphSink,
	scheduler *warp.Scheduler,
	producer *scene.Producer,
	mailbox timewarp.Mailbox,
) {
	fs, ok := sink.Latest()
	schedStats := scheduler.Stats()
	prodStats := producer.Stats()
	mbStats := mailbox.Stats()

	period := time.Duration(float64(time.Second) / config.RefreshRate)

	fmt.Println()
	fmt.Println("╭─────────────────────────────────────────────────────────────────╮")
	fmt.Printf("│ Warp Statistics (Uptime: %v)\n", uptime.Round(time.Second))
	fmt.Println("├─────────────────────────────────────────────────────────────────┤")

	fmt.Println("│ Frame Rates (trailing 20 refreshes):")
	fmt.Printf("│   Warp:  %s %6.2f fps\n", bar(fs.WarpFPS, config.RefreshRate, 30), fs.WarpFPS)
	fmt.Printf("│   Scene: %s %6.2f fps\n", bar(fs.SceneFPS, config.RefreshRate, 30), fs.SceneFPS)

	if ok {
		fmt.Println("│")
		fmt.Println("│ Last Refresh:")
		fmt.Printf("│   Frame Index:        %6d (adopted=%v)\n", fs.FrameIndex, fs.Adopted)
		fmt.Printf("│   Warp CPU:  %s %8.3fms\n",
			bar(fs.WarpCPUTime.Seconds()*1000, period.Seconds()*1000, 30),
			float64(fs.WarpCPUTime.Microseconds())/1000)
		fmt.Printf("│   Warp GPU:  %s %8.3fms\n",
			bar(fs.WarpGPUTime.Seconds()*1000, period.Seconds()*1000, 30),
			float64(fs.WarpGPUTime.Microseconds())/1000)
		fmt.Printf("│   Scene CPU: %s %8.3fms\n",
			bar(fs.SceneCPUTime.Seconds()*1000, period.Seconds()*1000, 30),
			float64(fs.SceneCPUTime.Microseconds())/1000)
		fmt.Printf("│   Scene GPU: %s %8.3fms\n",
			bar(fs.SceneGPUTime.Seconds()*1000, period.Seconds()*1000, 30),
			float64(fs.SceneGPUTime.Microseconds())/1000)
	}

	fmt.Println("│")
	fmt.Println("│ Totals:")
	fmt.Printf("│   Refreshes:          %6d\n", schedStats.Refreshes)
	fmt.Printf("│   Adoptions:          %6d\n", schedStats.Adoptions)
	fmt.Printf("│   Frames Published:   %6d\n", prodStats.Frames)
	fmt.Printf("│   Mailbox Sequence:   %6d (adopted: %d)\n",
		mbStats.LastSequence, schedStats.LastAdoptedSequence)
	fmt.Println("╰─────────────────────────────────────────────────────────────────╯")
	fmt.Println()
}

// printFinalStats prints the end-of-run summary.
func printFinalStats(
	config Config,
	scheduler *warp.Scheduler,
	producer *scene.Producer,
	mailbox timewarp.Mailbox,
) {
	schedStats := scheduler.Stats()
	prodStats := producer.Stats()
	mbStats := mailbox.Stats()

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                     Final Statistics                         ")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Refreshes Executed:    %d\n", schedStats.Refreshes)
	fmt.Printf("  Frames Adopted:        %d\n", schedStats.Adoptions)
	fmt.Printf("  Frames Published:      %d\n", prodStats.Frames)
	if schedStats.Refreshes > 0 {
		fmt.Printf("  Adoption Rate:         %.1f%%\n",
			float64(schedStats.Adoptions)/float64(schedStats.Refreshes)*100)
	}
	fmt.Printf("  Warp FPS (window):     %.2f\n", schedStats.WarpFPS)
	fmt.Printf("  Scene FPS (window):    %.2f\n", schedStats.SceneFPS)
	fmt.Printf("  Mailbox Closed:        %v\n", mbStats.Closed)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}

// bar renders a value as a fixed-width horizontal bar graph.
func bar(value, max float64, width int) string {
	if max <= 0 {
		max = 1
	}
	filled := int(value / max * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
