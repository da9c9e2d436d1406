package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/evaluator"
	"github.com/mertkiray/promptvfx/internal/scene"
	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/store"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

func redSet(t *testing.T, n int) *splat.AttributeSet {
	t.Helper()
	pos := splat.NewColumn(n, 3)
	col := splat.NewColumn(n, 3)
	op := splat.NewColumn(n, 1)
	for i := 0; i < n; i++ {
		col[i][0] = 1
		op[i][0] = 1
	}
	set, err := splat.NewAttributeSet(pos, col, op)
	if err != nil {
		t.Fatalf("NewAttributeSet failed: %v", err)
	}
	return set
}

func shiftX() timefn.TimeFunction {
	return timefn.Func(splat.Position, "shift_x", func(t float64, c splat.Column) (splat.Column, error) {
		for _, p := range c {
			p[0] += t
		}
		return c, nil
	})
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) has(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == ev {
			return true
		}
	}
	return false
}

func newSession(t *testing.T, sc scene.Scene) *Session {
	t.Helper()
	s, err := NewSession(sc, clock.Descriptor{DurationSeconds: 1, FPS: 2}, Options{EvalTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestInstallLoadsFrames(t *testing.T) {
	rec := scene.NewRecorder()
	s := newSession(t, rec)
	events := &eventLog{}
	s.Subscribe(events.add)

	set := redSet(t, 4)
	desc := clock.Descriptor{DurationSeconds: 1, FPS: 2}
	if err := s.Install(context.Background(), set, timefn.IdentityTriple().With(shiftX()), desc); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	for _, ev := range []Event{EventObject, EventAnimation, EventFrames} {
		if !events.has(ev) {
			t.Errorf("Missing %q event", ev)
		}
	}
	if rec.FrameCount() != 2 {
		t.Errorf("Scene holds %d frames, want 2", rec.FrameCount())
	}
	if v := rec.Visible(); len(v) != 1 || v[0] != 0 {
		t.Errorf("Visible = %v, want [0]", v)
	}

	f, err := s.Frame(1)
	if err != nil {
		t.Fatalf("Frame(1) failed: %v", err)
	}
	if f.Positions[0][0] != 0.5 {
		t.Errorf("Frame 1 x = %g, want 0.5", f.Positions[0][0])
	}
}

func TestInstallRejectsInvalidFunction(t *testing.T) {
	s := newSession(t, nil)
	set := redSet(t, 4)
	desc := clock.Descriptor{DurationSeconds: 1, FPS: 2}
	if err := s.Install(context.Background(), set, timefn.IdentityTriple(), desc); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	broken := timefn.Func(splat.Color, "broken", func(_ float64, c splat.Column) (splat.Column, error) {
		return c[:1], nil
	})
	err := s.Install(context.Background(), set, timefn.IdentityTriple().With(broken), desc)
	var verr *timefn.ValidationError
	if !errors.As(err, &verr) || verr.Role != splat.Color {
		t.Fatalf("Expected color ValidationError, got %v", err)
	}

	_, tr, _ := s.Active()
	if tr.Color.Name() == "broken" {
		t.Error("Rejected function was installed")
	}
	if !s.Ready() {
		t.Error("Previous frames were dropped by a rejected install")
	}
}

func TestInstallTimesOutEndlessScript(t *testing.T) {
	s, err := NewSession(nil, clock.Descriptor{DurationSeconds: 1, FPS: 2}, Options{EvalTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer s.Close()

	spin, err := timefn.CompileScript(splat.Position, "spin", `compute_positions := func(t, positions) {
	for {}
	return positions
}`, timefn.DefaultScriptOptions())
	if err != nil {
		t.Fatalf("CompileScript failed: %v", err)
	}

	start := time.Now()
	err = s.Install(context.Background(), redSet(t, 4), timefn.IdentityTriple().With(spin), clock.Descriptor{DurationSeconds: 1, FPS: 2})
	var verr *timefn.ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, timefn.ErrTimeout) {
		t.Fatalf("Expected ValidationError wrapping ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Install took %s", elapsed)
	}
	if s.Ready() {
		t.Error("Session became ready with a rejected animation")
	}
}

func TestLoadFailureNotifies(t *testing.T) {
	s := newSession(t, nil)
	events := &eventLog{}
	s.Subscribe(events.add)

	pole := timefn.Func(splat.Position, "pole", func(t float64, c splat.Column) (splat.Column, error) {
		if t == 0.5 {
			return nil, errors.New("division by zero")
		}
		return c, nil
	})
	err := s.Install(context.Background(), redSet(t, 4), timefn.IdentityTriple().With(pole), clock.Descriptor{DurationSeconds: 1, FPS: 2})

	var ferr *evaluator.FunctionEvaluationError
	if !errors.As(err, &ferr) || ferr.T != 0.5 {
		t.Fatalf("Expected FunctionEvaluationError at t=0.5, got %v", err)
	}
	if !events.has(EventFailed) {
		t.Error("Missing failed event")
	}
	var nerr *store.NotLoadedError
	if _, err := s.Frame(0); !errors.As(err, &nerr) {
		t.Errorf("Frame(0) = %v, want NotLoadedError", err)
	}
	if err := s.Play(); !errors.As(err, &nerr) {
		t.Errorf("Play = %v, want NotLoadedError", err)
	}
}

func TestStopAfterFailedLoadShowsNothing(t *testing.T) {
	rec := scene.NewRecorder()
	s := newSession(t, rec)

	pole := timefn.Func(splat.Color, "pole", func(t float64, c splat.Column) (splat.Column, error) {
		if t == 0.5 {
			return nil, errors.New("division by zero")
		}
		return c, nil
	})
	if err := s.Install(context.Background(), redSet(t, 4), timefn.IdentityTriple().With(pole), clock.Descriptor{DurationSeconds: 1, FPS: 2}); err == nil {
		t.Fatal("Expected load failure")
	}

	s.Stop()
	if v := rec.Visible(); len(v) != 0 {
		t.Errorf("Visible = %v after stopping an unloaded session", v)
	}
}

func TestSetFPSReloads(t *testing.T) {
	s := newSession(t, nil)
	if err := s.SetFPS(context.Background(), 8); !errors.Is(err, ErrNoObject) {
		t.Errorf("SetFPS without object = %v", err)
	}

	set := redSet(t, 2)
	if err := s.Install(context.Background(), set, timefn.IdentityTriple(), clock.Descriptor{DurationSeconds: 2, FPS: 8}); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if err := s.Seek(5); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	if err := s.SetFPS(context.Background(), 24); err != nil {
		t.Fatalf("SetFPS failed: %v", err)
	}
	if got := s.Store().TotalFrames(); got != 48 {
		t.Errorf("TotalFrames = %d, want 48", got)
	}
	if s.Visible() != 0 {
		t.Errorf("Visible = %d after reload, want 0", s.Visible())
	}
	if err := s.SetFPS(context.Background(), 0); !errors.Is(err, clock.ErrFPS) {
		t.Errorf("SetFPS(0) = %v", err)
	}
}

func TestSupersededReloadIsSilent(t *testing.T) {
	s := newSession(t, nil)
	set := redSet(t, 2)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	var once sync.Once
	slow := timefn.Func(splat.Opacity, "slow", func(t float64, c splat.Column) (splat.Column, error) {
		if t != 0.25 {
			once.Do(func() { close(started) })
			<-release
		}
		return c, nil
	})

	desc := clock.Descriptor{DurationSeconds: 1, FPS: 2}
	errA := make(chan error, 1)
	go func() {
		errA <- s.Install(context.Background(), set, timefn.IdentityTriple().With(slow), desc)
	}()
	<-started

	if err := s.Install(context.Background(), set, timefn.IdentityTriple(), desc); err != nil {
		t.Fatalf("Second install failed: %v", err)
	}
	select {
	case err := <-errA:
		if err != nil {
			t.Errorf("Superseded install returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Superseded install did not return")
	}
	if !s.Ready() {
		t.Error("Session not ready after the newer load")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	var sub Subject
	var got []Event
	unsub := sub.Subscribe(func(ev Event) { got = append(got, ev) })
	sub.Notify(EventSpeed)
	unsub()
	unsub()
	sub.Notify(EventFPS)

	if len(got) != 1 || got[0] != EventSpeed {
		t.Errorf("Observer saw %v", got)
	}
	if sub.Len() != 0 {
		t.Errorf("Len = %d after unsubscribe", sub.Len())
	}
}
