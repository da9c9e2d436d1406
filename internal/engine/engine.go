package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mertkiray/promptvfx/internal/analyzer"
	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/config"
	"github.com/mertkiray/promptvfx/internal/director"
	"github.com/mertkiray/promptvfx/internal/effects"
	"github.com/mertkiray/promptvfx/internal/evaluator"
	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/renderer"
	"github.com/mertkiray/promptvfx/internal/scene"
	"github.com/mertkiray/promptvfx/internal/source"
	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/state"
	"github.com/mertkiray/promptvfx/internal/system"
	"github.com/mertkiray/promptvfx/internal/timefn"
	"github.com/mertkiray/promptvfx/internal/video"
	"github.com/mertkiray/promptvfx/internal/watch"
)

// ErrNoDirector is returned when generation or feedback is requested
// without an LLM-backed director.
var ErrNoDirector = errors.New("no llm director configured")

// AnimationProject runs one object through one animation: load, play,
// export and report.
type AnimationProject struct {
	Config   *config.Config
	Source   source.Source
	Encoder  video.Encoder
	Director *director.Director // needed for Generate and Feedback only
	Log      *logger.Logger
	Out      io.Writer // performance report, stdout if nil

	BenchmarkLog string

	recorder *scene.Recorder
	session  *state.Session
	stats    Stats
}

// Stats are the phase timings of a run.
type Stats struct {
	Elements  int
	Frames    int
	Animation string
	Workers   int
	Object    time.Duration
	Resolve   time.Duration // reading, building or generating the animation
	Load      time.Duration
	Playback  time.Duration
	Render    time.Duration
	Encode    time.Duration
	Shown     int // frame changes during playback
	Blank     int // exported frames with nothing visible
	Clipped   int // exported frames touching the preview border
	Total     time.Duration
}

func NewAnimationProject(cfg *config.Config, src source.Source, enc video.Encoder, log *logger.Logger) *AnimationProject {
	if log == nil {
		log = logger.Discard()
	}
	return &AnimationProject{
		Config:       cfg,
		Source:       src,
		Encoder:      enc,
		Log:          log,
		BenchmarkLog: "benchmark.log",
	}
}

func (p *AnimationProject) Run(ctx context.Context) error {
	startTime := time.Now()
	cfg := p.Config

	t := time.Now()
	set, err := p.Source.AttributeSet()
	if err != nil {
		return fmt.Errorf("load object %s: %w", p.Source.Name(), err)
	}
	p.stats.Object = time.Since(t)
	p.stats.Elements = set.Len()

	t = time.Now()
	anim, tr, animPath, err := p.resolveAnimation(ctx, set)
	if err != nil {
		return err
	}
	p.stats.Resolve = time.Since(t)
	p.stats.Animation = anim.Title

	desc, err := anim.Descriptor()
	if err != nil {
		return fmt.Errorf("animation %q: %w", anim.Title, err)
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = system.DefaultWorkers()
	}
	p.stats.Workers = workers

	p.Close()
	p.recorder = scene.NewRecorder()
	p.session, err = state.NewSession(&scene.LogScene{Inner: p.recorder, Log: p.Log.WithPrefix("scene")}, desc, state.Options{
		EvalTimeout: cfg.EvalTimeout,
		Validate:    timefn.ValidateOptions{Timeout: cfg.EvalTimeout},
		SampleSize:  cfg.SampleSize,
		Workers:     workers,
		Logger:      p.Log.WithPrefix("session"),
	})
	if err != nil {
		return err
	}
	if err := p.session.SetSpeed(cfg.Speed); err != nil {
		return err
	}

	p.Log.Info("--- [PROMPTVFX] ---")
	p.Log.Info("[*] Object: %s | Elements: %d", p.Source.Name(), set.Len())
	p.Log.Info("[*] Animation: %s | %s | workers %d", anim.Title, desc, workers)

	t = time.Now()
	if err := p.session.Install(ctx, set, tr, desc); err != nil {
		return fmt.Errorf("install animation: %w", err)
	}
	p.stats.Load = time.Since(t)
	p.stats.Frames = desc.TotalFrames()
	p.Log.Info("[+] %d frames ready in %s", p.stats.Frames, p.stats.Load.Round(time.Millisecond))

	if cfg.Play > 0 {
		if err := p.play(ctx, time.Duration(cfg.Play*float64(time.Second))); err != nil {
			return err
		}
	}

	if cfg.Export != "" {
		if err := p.export(ctx, desc); err != nil {
			return err
		}
	}

	if cfg.Watch {
		dir := cfg.AnimationDir
		if animPath != "" {
			dir = filepath.Dir(animPath)
		}
		if err := p.watch(ctx, dir, set); err != nil {
			return err
		}
	}

	p.stats.Total = time.Since(startTime)
	if cfg.ShowStats {
		p.ShowStats()
	}
	return nil
}

// Session returns the session of the last Run. It stays open until Close.
func (p *AnimationProject) Session() *state.Session { return p.session }

// Close releases the session of the last Run.
func (p *AnimationProject) Close() {
	if p.session != nil {
		p.session.Close()
		p.session = nil
	}
}

// Stats returns the timings of the last Run.
func (p *AnimationProject) Stats() Stats { return p.stats }

// resolveAnimation picks the animation by priority: preset, generation,
// file, identity. A file combined with feedback is improved and saved.
func (p *AnimationProject) resolveAnimation(ctx context.Context, set *splat.AttributeSet) (*director.Animation, timefn.Triple, string, error) {
	cfg := p.Config
	sample := set.Sample(cfg.SampleSize)

	switch {
	case cfg.Preset != "":
		tr, err := effects.New(cfg.Preset, cfg.Duration)
		if err != nil {
			return nil, timefn.Triple{}, "", err
		}
		anim := &director.Animation{Version: "1.0", Title: cfg.Preset, Duration: cfg.Duration, FPS: cfg.FPS, Score: -1}
		p.Log.Info("[*] Using preset: %s", cfg.Preset)
		return anim, tr, "", nil

	case cfg.Generate != "":
		if p.Director == nil {
			return nil, timefn.Triple{}, "", ErrNoDirector
		}
		title := cfg.Title
		if title == "" {
			title = "animation"
		}
		evo, err := p.Director.Sample(ctx, director.Request{
			Title:       title,
			Description: cfg.Generate,
			Duration:    cfg.Duration,
			FPS:         cfg.FPS,
		}, cfg.Samples, sample, p.fitness(sample))
		if err != nil {
			return nil, timefn.Triple{}, "", fmt.Errorf("generate: %w", err)
		}
		if len(evo.Sampled) > 1 {
			p.Log.Info("[+] Kept the candidate scored %d of %d", evo.Final.Score, len(evo.Sampled))
		}
		return p.saveAndCompile(evo.Final)

	case cfg.Animation != "":
		path, err := animationFile(cfg.Animation)
		if err != nil {
			return nil, timefn.Triple{}, "", err
		}
		anim, err := director.ReadAnimation(path)
		if err != nil {
			return nil, timefn.Triple{}, "", fmt.Errorf("read animation: %w", err)
		}
		if anim.FPS == 0 {
			anim.FPS = cfg.FPS
		}
		p.Log.Info("[*] Using animation: %s", path)

		if cfg.Feedback != "" {
			if p.Director == nil {
				return nil, timefn.Triple{}, "", ErrNoDirector
			}
			improved, err := p.Director.Improve(ctx, anim, cfg.Feedback, sample)
			if err != nil {
				return nil, timefn.Triple{}, "", fmt.Errorf("feedback: %w", err)
			}
			return p.saveAndCompile(improved)
		}
		tr, err := director.Compile(anim, timefn.DefaultScriptOptions())
		if err != nil {
			return nil, timefn.Triple{}, "", err
		}
		return anim, tr, path, nil

	default:
		anim := director.DefaultAnimation()
		anim.Duration, anim.FPS = cfg.Duration, cfg.FPS
		tr, err := director.Compile(anim, timefn.DefaultScriptOptions())
		return anim, tr, "", err
	}
}

// fitness scores an animation by the share of its frames that stay in view:
// neither blank nor touching the border of a preview framed on the object
// at rest. A frame that fails to evaluate ends the count.
func (p *AnimationProject) fitness(sample *splat.AttributeSet) director.Scorer {
	return func(ctx context.Context, anim *director.Animation) (int, error) {
		desc, err := anim.Descriptor()
		if err != nil {
			return 0, err
		}
		tr, err := director.Compile(anim, timefn.DefaultScriptOptions())
		if err != nil {
			return 0, err
		}

		opts := renderer.DefaultOptions()
		opts.Width, opts.Height = 160, 120
		opts.Supersample = 1
		opts.Margin = 0.3
		opts.Label = false
		bounds := renderer.BoundsOf([]*splat.Frame{splat.BaselineFrame(0, 0, sample)})
		check := analyzer.New(opts.Background)
		eval := evaluator.New(p.Config.EvalTimeout)

		times := clock.SampleTimes(desc)
		good := 0
		for _, s := range times {
			f, err := eval.Evaluate(ctx, s.Index, s.T, sample, tr)
			if err != nil {
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				p.Log.Debug("fitness of %q stops at frame %d: %v", anim.Title, s.Index, err)
				break
			}
			r := check.Analyze(renderer.RenderFrame(f, bounds, opts))
			if !r.Blank && !r.Clipped {
				good++
			}
		}
		return 100 * good / len(times), nil
	}
}

func (p *AnimationProject) saveAndCompile(anim *director.Animation) (*director.Animation, timefn.Triple, string, error) {
	path := director.GenerateAnimationPath(p.Config.AnimationDir, anim.Title)
	if err := director.WriteAnimation(anim, path); err != nil {
		return nil, timefn.Triple{}, "", fmt.Errorf("save animation: %w", err)
	}
	p.Log.Info("[+++] Animation saved: %s", path)

	tr, err := director.Compile(anim, timefn.DefaultScriptOptions())
	if err != nil {
		return nil, timefn.Triple{}, "", err
	}
	return anim, tr, path, nil
}

// animationFile resolves a directory to its newest animation file.
func animationFile(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return director.FindLatestAnimation(path)
	}
	return path, nil
}

// play runs the player for d and pauses it.
func (p *AnimationProject) play(ctx context.Context, d time.Duration) error {
	before := len(p.recorder.History())
	t := time.Now()
	if err := p.session.Play(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	p.session.Pause()
	p.stats.Playback = time.Since(t)
	p.stats.Shown = len(p.recorder.History()) - before
	p.Log.Info("[*] Played %d frame changes in %s, paused at frame %d",
		p.stats.Shown, p.stats.Playback.Round(time.Millisecond), p.session.Visible())
	return ctx.Err()
}

// export renders every frame in parallel and encodes the sequence.
func (p *AnimationProject) export(ctx context.Context, desc clock.Descriptor) error {
	cfg := p.Config
	frames, err := p.session.Frames()
	if err != nil {
		return err
	}

	opts := renderer.DefaultOptions()
	opts.Width, opts.Height = cfg.Width, cfg.Height
	bounds := renderer.BoundsOf(frames)

	if cfg.Stamp {
		stamp, err := renderer.NewStamp(fmt.Sprintf("%s | %s", p.stats.Animation, p.Source.Name()), 1)
		if err != nil {
			return err
		}
		opts.Stamp = stamp
	}

	check := analyzer.New(opts.Background)
	check.Ignore = renderer.LabelBounds(opts)

	t := time.Now()
	images := make([]image.Image, len(frames))
	reports := make([]analyzer.Report, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.stats.Workers)
	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img := renderer.RenderFrame(f, bounds, opts)
			images[i] = img
			reports[i] = check.Analyze(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	p.stats.Render = time.Since(t)

	for i, r := range reports {
		switch {
		case r.Blank:
			p.stats.Blank++
			p.Log.Warn("[!] frame %d renders blank", i)
		case r.Clipped:
			p.stats.Clipped++
			p.Log.Debug("frame %d touches the preview border", i)
		}
	}

	encoder := cfg.VideoEncoder
	if encoder == "" {
		encoder = system.GetBestH264Encoder()
	}
	params := video.Params{
		FPS:     int(math.Max(1, math.Round(float64(desc.FPS)*cfg.Speed))),
		Encoder: encoder,
		Quality: cfg.Quality,
		Loops:   cfg.Loops,
	}

	t = time.Now()
	p.Log.Info("[*] Encoding %d frames with %s...", len(images), encoder)
	if err := p.Encoder.EncodeFrames(ctx, imageSequence(images), cfg.Export, params); err != nil {
		return fmt.Errorf("export %s: %w", cfg.Export, err)
	}
	p.stats.Encode = time.Since(t)
	p.Log.Info("[+++] Preview saved: %s", cfg.Export)
	return nil
}

type imageSequence []image.Image

func (s imageSequence) Len() int { return len(s) }

func (s imageSequence) Frame(_ context.Context, index int) (image.Image, error) {
	return s[index], nil
}

// watch plays the animation and reinstalls it whenever an animation file in
// dir changes, until ctx is done. A newer change supersedes a load in flight.
func (p *AnimationProject) watch(ctx context.Context, dir string, set *splat.AttributeSet) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	w, err := watch.New(system.AnimationExtensions, watch.DefaultDebounce, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Close()

	// Reinstalls finish before the session can be closed.
	var pending sync.WaitGroup
	defer pending.Wait()

	if err := p.session.Play(); err != nil {
		return err
	}
	p.Log.Info("[*] Watching %s for animation changes (Ctrl+C to stop)", dir)

	for {
		select {
		case <-ctx.Done():
			p.session.Stop()
			return nil
		case err, ok := <-w.Errors:
			if ok {
				p.Log.Warn("[!] watcher: %v", err)
			}
		case path, ok := <-w.Events:
			if !ok {
				return nil
			}
			pending.Add(1)
			go func() {
				defer pending.Done()
				p.reinstall(ctx, path, set)
			}()
		}
	}
}

func (p *AnimationProject) reinstall(ctx context.Context, path string, set *splat.AttributeSet) {
	anim, err := director.ReadAnimation(path)
	if err != nil {
		p.Log.Warn("[!] %s: %v", path, err)
		return
	}
	if anim.FPS == 0 {
		anim.FPS = p.Config.FPS
	}
	desc, err := anim.Descriptor()
	if err != nil {
		p.Log.Warn("[!] %s: %v", path, err)
		return
	}
	tr, err := director.Compile(anim, timefn.DefaultScriptOptions())
	if err != nil {
		p.Log.Warn("[!] %s: %v", path, err)
		return
	}
	p.Log.Info("[*] Reloading %s", filepath.Base(path))
	if err := p.session.Install(ctx, set, tr, desc); err != nil {
		p.Log.Warn("[!] %s rejected: %v", filepath.Base(path), err)
		return
	}
	p.Log.Info("[+] %s live: %s", anim.Title, desc)
}

// ShowStats prints the performance report and appends a line to the
// benchmark log.
func (p *AnimationProject) ShowStats() {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	s := p.stats
	host := system.Host()
	fps := 0.0
	if s.Load > 0 {
		fps = float64(s.Frames) / s.Load.Seconds()
	}

	fmt.Fprintf(out,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Host: %s\n"+
			"Elements: %d | Frames: %d | Workers: %d\n"+
			"Total Time: %.2fs\n"+
			"Object: %.2fs\n"+
			"Animation: %.2fs\n"+
			"Evaluation: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Blank/Clipped Frames: %d/%d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, host, s.Elements, s.Frames, s.Workers,
		s.Total.Seconds(), s.Object.Seconds(), s.Resolve.Seconds(), s.Load.Seconds(),
		s.Render.Seconds(), s.Encode.Seconds(), s.Blank, s.Clipped, fps,
	)

	if p.BenchmarkLog == "" {
		return
	}
	logEntry := fmt.Sprintf("[%s] Build: %s | Object: %s | Animation: %s | Elements: %d | Frames: %d | Total: %.2fs | Eval: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		p.Source.Name(),
		s.Animation,
		s.Elements,
		s.Frames,
		s.Total.Seconds(),
		s.Load.Seconds(),
		fps,
	)
	f, err := os.OpenFile(p.BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		p.Log.Warn("[!] failed to write %s: %v", p.BenchmarkLog, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(logEntry); err != nil {
		p.Log.Warn("[!] failed to write %s: %v", p.BenchmarkLog, err)
	}
}
