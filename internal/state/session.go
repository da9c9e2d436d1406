package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/evaluator"
	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/playback"
	"github.com/mertkiray/promptvfx/internal/scene"
	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/store"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// ErrNoObject is returned when loading before any object was set.
var ErrNoObject = errors.New("no object loaded")

// Options configures a Session.
type Options struct {
	EvalTimeout time.Duration          // per function call during loads
	Validate    timefn.ValidateOptions // probe settings for Install, Timeout defaults to EvalTimeout
	SampleSize  int                    // elements used for validation, all if <= 0
	Workers     int                    // parallel frame evaluations
	Logger      *logger.Logger
}

// Session owns the active object, function triple and descriptor, and is
// their only writer. Readers subscribe for change events.
type Session struct {
	Subject

	opts   Options
	log    *logger.Logger
	store  *store.Store
	player *playback.Controller
	scene  scene.Scene

	mu     sync.Mutex
	object *splat.AttributeSet
	triple timefn.Triple
	desc   clock.Descriptor

	shownMu sync.Mutex
	shown   int

	unsubscribe func()
}

// NewSession creates a session with the identity triple and the given
// descriptor. sc may be nil.
func NewSession(sc scene.Scene, desc clock.Descriptor, opts Options) (*Session, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	if sc == nil {
		sc = scene.NewRecorder()
	}
	if opts.Validate.Timeout == 0 {
		opts.Validate.Timeout = opts.EvalTimeout
	}

	s := &Session{
		opts:   opts,
		log:    log,
		scene:  sc,
		triple: timefn.IdentityTriple(),
		desc:   desc,
		shown:  -1,
	}
	s.store = store.New(evaluator.New(opts.EvalTimeout), store.Options{
		Workers: opts.Workers,
		Logger:  log.WithPrefix("store"),
	})
	s.store.OnProgress(func(f *splat.Frame, total int) {
		s.scene.AddFrame(f)
	})
	s.player = playback.New(s.store, s.show, log.WithPrefix("playback"))

	// A new frame table always starts from its first frame.
	s.unsubscribe = s.Subscribe(func(ev Event) {
		if ev == EventFrames {
			s.player.Rewind()
		}
	})
	return s, nil
}

func (s *Session) show(index int) {
	s.shownMu.Lock()
	defer s.shownMu.Unlock()
	if s.shown == index {
		return
	}
	if s.shown >= 0 {
		s.scene.SetVisible(s.shown, false)
	}
	s.scene.SetVisible(index, true)
	s.shown = index
}

// Install validates all three functions against the object and, only if
// every one passes, replaces the active registry and reloads the frames.
func (s *Session) Install(ctx context.Context, set *splat.AttributeSet, tr timefn.Triple, desc clock.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if err := set.Validate(); err != nil {
		return err
	}
	if err := tr.Check(); err != nil {
		return err
	}
	if err := timefn.ValidateTriple(ctx, tr, set.Sample(s.opts.SampleSize), s.opts.Validate); err != nil {
		s.log.Warn("[!] rejected animation: %v", err)
		return err
	}

	s.mu.Lock()
	objectChanged := s.object != set
	s.object = set
	s.triple = tr
	s.desc = desc
	s.mu.Unlock()

	if objectChanged {
		s.Notify(EventObject)
	}
	s.Notify(EventAnimation)
	return s.Reload(ctx)
}

// SetObject replaces the object and reloads with the active functions.
func (s *Session) SetObject(ctx context.Context, set *splat.AttributeSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.object = set
	s.mu.Unlock()
	s.Notify(EventObject)
	return s.Reload(ctx)
}

// SetFPS regenerates the schedule at fps and reloads.
func (s *Session) SetFPS(ctx context.Context, fps int) error {
	s.mu.Lock()
	desc, err := clock.NewDescriptor(s.desc.DurationSeconds, fps)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.desc = desc
	s.mu.Unlock()
	s.Notify(EventFPS)
	return s.Reload(ctx)
}

// SetDuration changes the animation length and reloads.
func (s *Session) SetDuration(ctx context.Context, seconds int) error {
	s.mu.Lock()
	desc, err := clock.NewDescriptor(seconds, s.desc.FPS)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.desc = desc
	s.mu.Unlock()
	s.Notify(EventDuration)
	return s.Reload(ctx)
}

// SetSpeed changes the playback multiplier. No reload is needed.
func (s *Session) SetSpeed(speed float64) error {
	if err := s.player.SetSpeed(speed); err != nil {
		return err
	}
	s.Notify(EventSpeed)
	return nil
}

// Reload rebuilds the frame table from the active registry. A reload that
// gets superseded returns nil; the newer one reports the outcome.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	set, tr, desc := s.object, s.triple, s.desc
	s.mu.Unlock()
	if set == nil {
		return ErrNoObject
	}

	s.store.Invalidate()
	s.shownMu.Lock()
	s.shown = -1
	s.shownMu.Unlock()
	s.scene.Clear()
	s.scene.SetObject(set)

	err := s.store.Load(ctx, set, tr, desc)
	switch {
	case errors.Is(err, store.ErrStaleGeneration):
		s.log.Debug("reload superseded")
		return nil
	case err != nil:
		s.Notify(EventFailed)
		return fmt.Errorf("load %s: %w", desc, err)
	}
	s.Notify(EventFrames)
	return nil
}

func (s *Session) Play() error          { return s.player.Play() }
func (s *Session) Pause()               { s.player.Pause() }
func (s *Session) Stop()                { s.player.Stop() }
func (s *Session) Seek(index int) error { return s.player.Seek(index) }

// Visible returns the visible frame index.
func (s *Session) Visible() int { return s.player.Visible() }

// Frame returns a materialised frame.
func (s *Session) Frame(index int) (*splat.Frame, error) { return s.store.Get(index) }

// Frames returns every frame of a ready session.
func (s *Session) Frames() ([]*splat.Frame, error) { return s.store.Frames() }

// Ready reports whether frames are playable.
func (s *Session) Ready() bool { return s.store.Ready() }

// Active returns the current registry.
func (s *Session) Active() (*splat.AttributeSet, timefn.Triple, clock.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.object, s.triple, s.desc
}

func (s *Session) Player() *playback.Controller { return s.player }
func (s *Session) Store() *store.Store          { return s.store }

// Close stops playback, drops frames and removes every observer.
func (s *Session) Close() {
	s.player.Stop()
	s.store.Invalidate()
	s.unsubscribe()
	s.reset()
}
