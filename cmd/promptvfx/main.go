package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mertkiray/promptvfx/internal/config"
	"github.com/mertkiray/promptvfx/internal/director"
	"github.com/mertkiray/promptvfx/internal/effects"
	"github.com/mertkiray/promptvfx/internal/engine"
	"github.com/mertkiray/promptvfx/internal/llm"
	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/playback"
	"github.com/mertkiray/promptvfx/internal/settings"
	"github.com/mertkiray/promptvfx/internal/source"
	"github.com/mertkiray/promptvfx/internal/system"
	"github.com/mertkiray/promptvfx/internal/video"
)

var buildVersion = "dev"

// errUsage marks failures caused by the command line or config file.
var errUsage = errors.New("invalid configuration")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run returns errors that have already been reported, so deferred cleanup
// happens before main exits.
func run() error {
	configPtr := flag.String("config", "", "YAML config file (flags override it)")
	objectPtr := flag.String("object", "", "Object: .yaml/.splat file, shape:sphere|cube|grid|helix, or latest (newest file in objects/)")
	centerPtr := flag.Bool("center", true, "Move the object centroid to the origin")
	countPtr := flag.Int("count", 0, "Element count of procedural shapes")
	seedPtr := flag.Int64("seed", 0, "Color seed of procedural shapes")
	animationPtr := flag.String("animation", "", "Animation file or directory (newest file is used)")
	presetPtr := flag.String("preset", "", "Built-in animation: "+strings.Join(effects.Names(), ", "))
	generatePtr := flag.String("generate", "", "Describe an animation to generate with the LLM")
	titlePtr := flag.String("title", "", "Title of a generated animation")
	feedbackPtr := flag.String("feedback", "", "Improve -animation with this feedback")
	animDirPtr := flag.String("animations-dir", "", "Where generated animations are saved")
	durationPtr := flag.Int("duration", 0, "Animation length in seconds")
	fpsPtr := flag.Int("fps", 0, "Sampling rate in frames per second")
	speedPtr := flag.Float64("speed", 0, "Playback speed multiplier, e.g. "+speedChoices())
	workersPtr := flag.Int("workers", 0, "Parallel frame evaluations (0 = one per core)")
	timeoutPtr := flag.Duration("timeout", 0, "Time limit per function call")
	providerPtr := flag.String("provider", "", "LLM provider: anthropic, openai, local")
	modelPtr := flag.String("model", "", "LLM model name")
	baseURLPtr := flag.String("base-url", "", "LLM API base URL")
	samplesPtr := flag.Int("samples", 0, "Animations to generate; the one with the fewest blank or clipped frames is kept")
	playPtr := flag.Float64("play", 0, "Play the loaded frames headless for N seconds")
	exportPtr := flag.String("export", "", "Write a preview video to this path")
	widthPtr := flag.Int("width", 0, "Preview width")
	heightPtr := flag.Int("height", 0, "Preview height")
	qualityPtr := flag.Int("quality", 0, "Video quality (x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	loopsPtr := flag.Int("loops", 0, "Extra loops of the animation in the preview video")
	watchPtr := flag.Bool("watch", false, "Reload the animation when its file changes")
	stampPtr := flag.Bool("stamp", false, "Stamp a QR code of the animation and object into preview frames")
	statsPtr := flag.Bool("stats", false, "Print a performance report and append benchmark.log")
	logLevelPtr := flag.String("log-level", "", "debug, info, warn, error")
	listPtr := flag.Bool("list-presets", false, "List built-in animations and exit")

	flag.Parse()

	if *listPtr {
		for _, name := range effects.Names() {
			fmt.Println(name)
		}
		return nil
	}

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		cfg = loaded
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	log := logger.New(os.Stdout, logger.ParseLevel(pick(set["log-level"], *logLevelPtr, cfg.LogLevel)), "")

	// Remembered playback preferences sit between the defaults and the flags.
	prefs := settings.Open("promptvfx", log.WithPrefix("settings"))
	if *configPtr == "" {
		p := prefs.Prefs()
		cfg.FPS, cfg.Speed, cfg.Workers = p.FPS, p.Speed, p.Workers
	}

	cfg.Object = pick(set["object"], *objectPtr, cfg.Object)
	cfg.Center = pick(set["center"], *centerPtr, cfg.Center)
	cfg.ShapeCount = pick(set["count"], *countPtr, cfg.ShapeCount)
	cfg.Seed = pick(set["seed"], *seedPtr, cfg.Seed)
	cfg.Animation = pick(set["animation"], *animationPtr, cfg.Animation)
	cfg.Preset = pick(set["preset"], *presetPtr, cfg.Preset)
	cfg.Generate = pick(set["generate"], *generatePtr, cfg.Generate)
	cfg.Title = pick(set["title"], *titlePtr, cfg.Title)
	cfg.Feedback = pick(set["feedback"], *feedbackPtr, cfg.Feedback)
	cfg.AnimationDir = pick(set["animations-dir"], *animDirPtr, cfg.AnimationDir)
	cfg.Duration = pick(set["duration"], *durationPtr, cfg.Duration)
	cfg.FPS = pick(set["fps"], *fpsPtr, cfg.FPS)
	cfg.Speed = pick(set["speed"], *speedPtr, cfg.Speed)
	cfg.Workers = pick(set["workers"], *workersPtr, cfg.Workers)
	cfg.EvalTimeout = pick(set["timeout"], *timeoutPtr, cfg.EvalTimeout)
	cfg.Provider = pick(set["provider"], *providerPtr, cfg.Provider)
	cfg.Model = pick(set["model"], *modelPtr, cfg.Model)
	cfg.BaseURL = pick(set["base-url"], *baseURLPtr, cfg.BaseURL)
	cfg.Samples = pick(set["samples"], *samplesPtr, cfg.Samples)
	cfg.Play = pick(set["play"], *playPtr, cfg.Play)
	cfg.Export = pick(set["export"], *exportPtr, cfg.Export)
	cfg.Width = pick(set["width"], *widthPtr, cfg.Width)
	cfg.Height = pick(set["height"], *heightPtr, cfg.Height)
	cfg.Quality = pick(set["quality"], *qualityPtr, cfg.Quality)
	cfg.Loops = pick(set["loops"], *loopsPtr, cfg.Loops)
	cfg.Watch = pick(set["watch"], *watchPtr, cfg.Watch)
	cfg.Stamp = pick(set["stamp"], *stampPtr, cfg.Stamp)
	cfg.ShowStats = pick(set["stats"], *statsPtr, cfg.ShowStats)
	cfg.BuildVersion = buildVersion

	if cfg.Object == "" || cfg.Object == "latest" {
		latest, err := system.FindLatestFile("objects", system.ObjectExtensions...)
		if err != nil {
			log.Error("[-] Error: %v. Put an object into objects/ or pass -object", err)
			return err
		}
		cfg.Object = latest
		log.Info("[*] Selected object: %s", latest)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("[-] Invalid configuration: %v", err)
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if set["fps"] || set["speed"] || set["workers"] {
		if err := prefs.Update(settings.Prefs{FPS: cfg.FPS, Speed: cfg.Speed, Workers: cfg.Workers}); err == nil {
			if err := prefs.Save(); err != nil {
				log.Warn("[!] %v", err)
			}
		}
	}

	opts := []source.Option{source.WithCount(cfg.ShapeCount), source.WithSeed(cfg.Seed)}
	if cfg.Center {
		opts = append(opts, source.Centered())
	}
	src, err := source.Open(cfg.Object, opts...)
	if err != nil {
		log.Error("[-] Failed to open object: %v", err)
		return err
	}
	defer src.Close()

	project := engine.NewAnimationProject(cfg, src, &video.FFmpegEncoder{}, log)
	defer project.Close()

	if cfg.Generate != "" || cfg.Feedback != "" {
		client, err := llm.New(cfg.Provider, "", cfg.Model, cfg.BaseURL)
		if err != nil {
			log.Error("[-] LLM setup failed: %v", err)
			return err
		}
		d := director.NewDirector(client, log.WithPrefix("director"))
		d.MaxAttempts = cfg.MaxAttempts
		d.Validate.Timeout = cfg.EvalTimeout
		project.Director = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := project.Run(ctx); err != nil {
		log.Error("[-] Project error: %v", err)
		return err
	}
	log.Info("[+++] Done in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// pick returns flagValue when the flag was given on the command line.
func pick[T any](given bool, flagValue, current T) T {
	if given {
		return flagValue
	}
	return current
}

func speedChoices() string {
	parts := make([]string, len(playback.Speeds))
	for i, v := range playback.Speeds {
		parts[i] = fmt.Sprintf("%gx", v)
	}
	return strings.Join(parts, ", ")
}
