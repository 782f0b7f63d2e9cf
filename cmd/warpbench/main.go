// Command warpbench runs the asynchronous time-warp benchmark: a scene
// producer rendering at its own rate, a display-paced warp consumer
// re-projecting the freshest complete frame every refresh, and live
// bar-graph statistics for both rates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/warpbench/display"
	"github.com/e7canasta/warpbench/pose"
	"github.com/e7canasta/warpbench/reproject"
	"github.com/e7canasta/warpbench/scene"
	"github.com/e7canasta/warpbench/timewarp"
	"github.com/e7canasta/warpbench/warp"
)

const version = "v0.1.0"

// Config for the benchmark run.
type Config struct {
	// Display
	RefreshRate float64
	Scanout     time.Duration

	// Warp
	RendererKind        reproject.Kind
	ChromaticAberration bool
	StrictSequence      bool

	// Scene
	SceneCPU      time.Duration
	SceneGPU      time.Duration
	EyeResolution int
	FrozenHead    bool

	// Run control
	Duration      time.Duration
	StatsInterval time.Duration
	Debug         bool
}

func main() {
	config := parseFlags()

	logLevel := slog.LevelInfo
	if config.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	printBanner(config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, config.Duration)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Shutdown signal received, stopping gracefully...")
		cancel()
	}()

	if err := runBenchmark(ctx, config, logger); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("Benchmark failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Benchmark stopped gracefully")
}

func parseFlags() Config {
	var config Config

	flag.Float64Var(&config.RefreshRate, "refresh", 60, "Display refresh rate in Hz")
	scanoutMs := flag.Float64("scanout", 0, "Rolling scanout span in milliseconds (0 = global refresh)")

	rendererStr := flag.String("renderer", "graphics", "Re-projection strategy: graphics or compute")
	flag.BoolVar(&config.ChromaticAberration, "chromatic", false, "Enable chromatic aberration correction")
	flag.BoolVar(&config.StrictSequence, "strict", false, "Panic on sequence-contract violations (development)")

	flag.DurationVar(&config.SceneCPU, "scene-cpu", 8*time.Millisecond, "Simulated scene CPU time per frame")
	flag.DurationVar(&config.SceneGPU, "scene-gpu", 6*time.Millisecond, "Simulated scene GPU time per frame")
	flag.IntVar(&config.EyeResolution, "eye-res", 1024, "Per-eye render target resolution (square)")
	flag.BoolVar(&config.FrozenHead, "frozen-head", false, "Disable head motion (identity poses)")

	flag.DurationVar(&config.Duration, "duration", 0, "Benchmark duration (0 = run until signal)")
	flag.DurationVar(&config.StatsInterval, "stats-interval", time.Second, "Statistics reporting interval")
	flag.BoolVar(&config.Debug, "debug", false, "Enable debug logging")

	flag.Parse()

	kind, err := reproject.ParseKind(*rendererStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.RendererKind = kind

	if config.RefreshRate <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --refresh must be positive\n")
		os.Exit(1)
	}
	if config.EyeResolution <= 0 {
		fmt.Fprintf(os.Stderr, "Error: --eye-res must be positive\n")
		os.Exit(1)
	}

	config.Scanout = time.Duration(*scanoutMs * float64(time.Millisecond))
	return config
}

func runBenchmark(ctx context.Context, config Config, logger *slog.Logger) error {
	// 1. Display clock.
	disp, err := display.NewSimulated(display.SimulatedConfig{
		RefreshRate: config.RefreshRate,
		Scanout:     config.Scanout,
	})
	if err != nil {
		return fmt.Errorf("failed to create display: %w", err)
	}

	// 2. Head pose model.
	headPose := pose.NewSmooth(pose.SmoothConfig{Frozen: config.FrozenHead})

	// 3. Timing predictor + mailbox.
	timing := timewarp.NewFrameTiming()
	mailbox, err := timewarp.New(timewarp.Config{
		Display: disp,
		Timing:  timing,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create mailbox: %w", err)
	}

	// 4. Re-projection strategy.
	renderer, err := reproject.New(config.RendererKind)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	logger.Info("Renderer selected", "kind", config.RendererKind.String())

	// 5. Scene producer.
	producer, err := scene.New(scene.Config{
		Mailbox: mailbox,
		Timing:  timing,
		Pose:    headPose,
		Targets: scene.NewTargetRing(config.EyeResolution, config.EyeResolution, 2),
		CPUTime: config.SceneCPU,
		GPUTime: config.SceneGPU,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create scene producer: %w", err)
	}

	// 6. Warp scheduler with bar-graph sink.
	sink := newBarGraphSink()
	scheduler, err := warp.New(warp.Config{
		Mailbox:             mailbox,
		Display:             disp,
		Renderer:            renderer,
		Pose:                headPose,
		Stats:               sink,
		ChromaticAberration: config.ChromaticAberration,
		StrictSequence:      config.StrictSequence,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create warp scheduler: %w", err)
	}

	// 7. Run the two long-lived threads plus the stats reporter.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return producer.Run(gctx) })
	g.Go(func() error {
		reportStats(gctx, config, sink, scheduler, producer, mailbox)
		return nil
	})

	err = g.Wait()

	printFinalStats(config, scheduler, producer, mailbox)
	return err
}

func printBanner(config Config) {
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        warpbench - Asynchronous Time Warp Benchmark          ║")
	fmt.Printf("║                    Version %-30s ║\n", version)
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Refresh Rate:    %.1f Hz (%.2fms period)\n",
		config.RefreshRate, 1000/config.RefreshRate)
	if config.Scanout > 0 {
		fmt.Printf("  Scanout:         rolling, %v span\n", config.Scanout)
	} else {
		fmt.Printf("  Scanout:         global refresh\n")
	}
	fmt.Printf("  Renderer:        %s\n", config.RendererKind)
	fmt.Printf("  Chromatic:       %v\n", config.ChromaticAberration)
	fmt.Printf("  Scene CPU/GPU:   %v / %v per frame\n", config.SceneCPU, config.SceneGPU)
	fmt.Printf("  Eye Resolution:  %dx%d x2 layers\n", config.EyeResolution, config.EyeResolution)
	fmt.Printf("  Stats Interval:  %v\n", config.StatsInterval)
	fmt.Println()
	fmt.Println("Pipeline:")
	fmt.Println("  scene producer → EyeTextureMailbox → warp scheduler → display")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop gracefully")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}
