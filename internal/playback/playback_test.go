package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/store"
)

type fakeTimeline struct {
	mu    sync.Mutex
	ready bool
	desc  clock.Descriptor
}

func (f *fakeTimeline) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeTimeline) TotalFrames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return 0
	}
	return f.desc.TotalFrames()
}

func (f *fakeTimeline) Descriptor() clock.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desc
}

type recorder struct {
	mu   sync.Mutex
	seen []int
}

func (r *recorder) record(i int) {
	r.mu.Lock()
	r.seen = append(r.seen, i)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seen...)
}

func readyTimeline(duration, fps int) *fakeTimeline {
	return &fakeTimeline{ready: true, desc: clock.Descriptor{DurationSeconds: duration, FPS: fps}}
}

func TestStepWrapsAround(t *testing.T) {
	tl := readyTimeline(1, 4)
	rec := &recorder{}
	c := New(tl, rec.record, nil)

	for i := 0; i < 9; i++ {
		c.Step()
	}
	want := []int{1, 2, 3, 0, 1, 2, 3, 0, 1}
	got := rec.snapshot()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Step sequence = %v, want %v", got, want)
		}
	}
}

func TestSeekWraps(t *testing.T) {
	tl := readyTimeline(1, 8)
	c := New(tl, nil, nil)

	tests := []struct {
		seek int
		want int
	}{
		{0, 0},
		{3, 3},
		{8, 0},
		{11, 3},
		{-1, 7},
	}
	for _, tt := range tests {
		if err := c.Seek(tt.seek); err != nil {
			t.Fatalf("Seek(%d) failed: %v", tt.seek, err)
		}
		if got := c.Visible(); got != tt.want {
			t.Errorf("Seek(%d) -> %d, want %d", tt.seek, got, tt.want)
		}
	}
}

func TestNotReady(t *testing.T) {
	tl := &fakeTimeline{}
	rec := &recorder{}
	c := New(tl, rec.record, nil)

	var nerr *store.NotLoadedError
	if err := c.Play(); !errors.As(err, &nerr) {
		t.Errorf("Play on empty timeline = %v", err)
	}
	if err := c.Seek(2); !errors.As(err, &nerr) {
		t.Errorf("Seek on empty timeline = %v", err)
	}
	if d := c.Step(); d != idleInterval {
		t.Errorf("Step interval = %v, want %v", d, idleInterval)
	}
	c.Stop()
	if len(rec.snapshot()) != 0 || c.Visible() != 0 {
		t.Errorf("Controller reported %v without frames", rec.snapshot())
	}
}

func TestStepInterval(t *testing.T) {
	tl := readyTimeline(1, 8)
	c := New(tl, nil, nil)

	tests := []struct {
		speed float64
		want  time.Duration
	}{
		{1, 125 * time.Millisecond},
		{2, 62500 * time.Microsecond},
		{0.25, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if err := c.SetSpeed(tt.speed); err != nil {
			t.Fatalf("SetSpeed(%g) failed: %v", tt.speed, err)
		}
		if got := c.Step(); got != tt.want {
			t.Errorf("speed %g: interval %v, want %v", tt.speed, got, tt.want)
		}
	}
	if err := c.SetSpeed(0); !errors.Is(err, clock.ErrSpeed) {
		t.Errorf("SetSpeed(0) = %v", err)
	}
}

func TestPlayStopIsPrompt(t *testing.T) {
	// One frame per second: Stop must not wait for the tick to elapse.
	tl := readyTimeline(5, 1)
	rec := &recorder{}
	c := New(tl, rec.record, nil)

	if err := c.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if c.State() != Playing {
		t.Fatalf("State = %v", c.State())
	}
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	c.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop took %v", elapsed)
	}
	if c.State() != Stopped || c.Visible() != 0 {
		t.Errorf("After Stop: state=%v visible=%d", c.State(), c.Visible())
	}
	seen := rec.snapshot()
	if seen[len(seen)-1] != 0 {
		t.Errorf("Last reported frame = %d, want 0", seen[len(seen)-1])
	}
}

func TestPauseKeepsPosition(t *testing.T) {
	tl := readyTimeline(1, 100)
	c := New(tl, nil, nil)

	if err := c.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	c.Pause()

	pos := c.Visible()
	if c.State() != Paused {
		t.Errorf("State = %v, want paused", c.State())
	}
	if pos == 0 {
		t.Error("Playback did not advance")
	}
	time.Sleep(30 * time.Millisecond)
	if c.Visible() != pos {
		t.Error("Position moved while paused")
	}
	t.Logf("paused at frame %d", pos)
}

func TestPlayWrapsWhileRunning(t *testing.T) {
	// 4 frames at 100 FPS: 100ms covers more than two loops.
	tl := readyTimeline(1, 100)
	rec := &recorder{}
	c := New(&fixedTotal{fakeTimeline: tl, total: 4}, rec.record, nil)

	if err := c.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	c.Pause()

	wrapped := false
	for _, idx := range rec.snapshot() {
		if idx < 0 || idx >= 4 {
			t.Fatalf("Index %d out of range", idx)
		}
		if idx == 0 {
			wrapped = true
		}
	}
	if !wrapped {
		t.Errorf("Playback never wrapped: %v", rec.snapshot())
	}
}

// fixedTotal overrides the frame count while keeping the fps.
type fixedTotal struct {
	*fakeTimeline
	total int
}

func (f *fixedTotal) TotalFrames() int { return f.total }
