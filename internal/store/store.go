package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/evaluator"
	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// ErrStaleGeneration is returned by a load that was superseded by a newer
// Load or by Invalidate. Its frames never reach the store.
var ErrStaleGeneration = errors.New("load superseded by a newer generation")

// ErrIndexRange is returned by Get for an index outside a loaded store.
var ErrIndexRange = errors.New("frame index out of range")

// NotLoadedError is returned by Get when the requested frame has not been
// produced by the current generation.
type NotLoadedError struct {
	Index      int
	Generation uint64
	Cause      error // failure of the last load, if any
}

func (e *NotLoadedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("frame %d not loaded (generation %d): last load failed: %v", e.Index, e.Generation, e.Cause)
	}
	return fmt.Sprintf("frame %d not loaded (generation %d)", e.Index, e.Generation)
}

func (e *NotLoadedError) Unwrap() error { return e.Cause }

// ProgressFunc observes frames as they become retrievable, in index order.
type ProgressFunc func(frame *splat.Frame, total int)

// Options configures a Store.
type Options struct {
	Workers int // parallel frame evaluations, 1 or less for sequential
	Logger  *logger.Logger
}

// Store materialises and holds one frame per index for the current animation.
type Store struct {
	ev      *evaluator.Evaluator
	workers int
	log     *logger.Logger

	emitMu sync.Mutex // serialises publish so progress stays ordered

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	desc     clock.Descriptor
	frames   []*splat.Frame
	produced int // length of the retrievable prefix
	ready    bool
	lastErr  error
	progress ProgressFunc
}

// New creates an empty, not-ready store.
func New(ev *evaluator.Evaluator, opts Options) *Store {
	if ev == nil {
		ev = evaluator.New(0)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		ev:      ev,
		workers: opts.Workers,
		log:     log,
	}
}

// OnProgress installs the progress observer. It is called outside the store
// lock and may call Get.
func (s *Store) OnProgress(fn ProgressFunc) {
	s.mu.Lock()
	s.progress = fn
	s.mu.Unlock()
}

// Load evaluates every sample of desc and makes the store ready on success.
// A Load in flight is canceled and its results discarded. On failure the
// store is left not ready with no frames.
func (s *Store) Load(ctx context.Context, set *splat.AttributeSet, tr timefn.Triple, desc clock.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if err := set.Validate(); err != nil {
		return err
	}
	if err := tr.Check(); err != nil {
		return err
	}

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := desc.TotalFrames()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.desc = desc
	s.frames = make([]*splat.Frame, total)
	s.produced = 0
	s.ready = false
	s.lastErr = nil
	s.mu.Unlock()

	done := s.log.Step(fmt.Sprintf("load generation %d: %d frames (%s)", gen, total, desc))

	var err error
	if s.workers > 1 {
		err = s.loadParallel(loadCtx, gen, set, tr, desc)
	} else {
		err = s.loadSequential(loadCtx, gen, set, tr, desc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.log.Debug("generation %d superseded", gen)
		return ErrStaleGeneration
	}
	s.cancel = nil
	if err != nil {
		s.frames = nil
		s.produced = 0
		s.lastErr = err
		s.log.Error("load generation %d failed: %v", gen, err)
		return err
	}
	s.ready = true
	done()
	return nil
}

func (s *Store) loadSequential(ctx context.Context, gen uint64, set *splat.AttributeSet, tr timefn.Triple, desc clock.Descriptor) error {
	for _, smp := range clock.SampleTimes(desc) {
		frame, err := s.ev.Evaluate(ctx, smp.Index, smp.T, set, tr)
		if err != nil {
			return err
		}
		if !s.publish(gen, frame) {
			return ErrStaleGeneration
		}
	}
	return nil
}

func (s *Store) loadParallel(ctx context.Context, gen uint64, set *splat.AttributeSet, tr timefn.Triple, desc clock.Descriptor) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, smp := range clock.SampleTimes(desc) {
		smp := smp
		g.Go(func() error {
			frame, err := s.ev.Evaluate(gctx, smp.Index, smp.T, set, tr)
			if err != nil {
				return err
			}
			if !s.publish(gen, frame) {
				return ErrStaleGeneration
			}
			return nil
		})
	}
	return g.Wait()
}

// publish slots the frame in and extends the retrievable prefix. It reports
// false when gen is no longer current.
func (s *Store) publish(gen uint64, frame *splat.Frame) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.frames[frame.Index] = frame
	from := s.produced
	for s.produced < len(s.frames) && s.frames[s.produced] != nil {
		s.produced++
	}
	fresh := s.frames[from:s.produced]
	total := len(s.frames)
	cb := s.progress
	s.mu.Unlock()

	for _, f := range fresh {
		s.log.Progress(f.Index+1, total)
		if cb != nil {
			cb(f, total)
		}
	}
	return true
}

// Get returns the frame at index. Frames of an in-flight load are available
// once every lower index has been produced.
func (s *Store) Get(index int) (*splat.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index >= 0 && index < s.produced {
		return s.frames[index], nil
	}
	if s.ready {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexRange, index, len(s.frames))
	}
	return nil, &NotLoadedError{Index: index, Generation: s.gen, Cause: s.lastErr}
}

// Frames returns the frames of a ready store in index order.
func (s *Store) Frames() ([]*splat.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, &NotLoadedError{Index: 0, Generation: s.gen, Cause: s.lastErr}
	}
	out := make([]*splat.Frame, len(s.frames))
	copy(out, s.frames)
	return out, nil
}

// Invalidate discards all frames and cancels any load in flight.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.frames = nil
	s.produced = 0
	s.ready = false
	s.lastErr = nil
	s.desc = clock.Descriptor{}
}

// Ready reports whether a load completed and nothing invalidated it since.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// TotalFrames returns the frame count of a ready store, or 0.
func (s *Store) TotalFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0
	}
	return len(s.frames)
}

// Descriptor returns the descriptor of the current or last load.
func (s *Store) Descriptor() clock.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Generation returns the current generation token.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Err returns the failure of the last load, if it failed.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
