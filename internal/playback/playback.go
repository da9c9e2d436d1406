package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/mertkiray/promptvfx/internal/clock"
	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/store"
)

// Speeds offered by the preview UI.
var Speeds = []float64{0.25, 0.5, 1, 2}

// idleInterval is the tick period while no frames are ready.
const idleInterval = 50 * time.Millisecond

// State of the controller.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Timeline is what the controller reads each tick. *store.Store satisfies it.
type Timeline interface {
	Ready() bool
	TotalFrames() int
	Descriptor() clock.Descriptor
}

// FrameChangeFunc is told which frame became visible. It runs outside the
// controller lock but on the playback goroutine, so it must not call Stop
// or Pause.
type FrameChangeFunc func(index int)

// Controller walks frame indices over wall-clock time.
type Controller struct {
	timeline Timeline
	onChange FrameChangeFunc
	log      *logger.Logger

	mu      sync.Mutex
	state   State
	visible int
	speed   float64
	stop    chan struct{}
	done    chan struct{}
}

// New creates a stopped controller at frame 0 and speed 1.
func New(timeline Timeline, onChange FrameChangeFunc, log *logger.Logger) *Controller {
	if onChange == nil {
		onChange = func(int) {}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{
		timeline: timeline,
		onChange: onChange,
		log:      log,
		speed:    1,
	}
}

// Play starts the tick loop. It is a no-op while already playing and fails
// with *store.NotLoadedError when the timeline has no frames.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Playing {
		return nil
	}
	if !c.timeline.Ready() {
		return &store.NotLoadedError{Index: c.visible}
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.state = Playing
	go c.run(c.stop, c.done)
	c.log.Debug("playing from frame %d at %gx", c.visible, c.speed)
	return nil
}

// Pause halts the loop and keeps the visible frame.
func (c *Controller) Pause() {
	c.mu.Lock()
	done := c.haltLocked()
	if c.state == Playing {
		c.state = Paused
	}
	c.mu.Unlock()
	wait(done)
}

// Stop halts the loop and rewinds to frame 0, so the next Play starts from
// the beginning. Frame 0 is only reported when the timeline has frames.
func (c *Controller) Stop() {
	c.mu.Lock()
	done := c.haltLocked()
	c.state = Stopped
	c.visible = 0
	ready := c.timeline.Ready()
	c.mu.Unlock()
	wait(done)
	if ready {
		c.onChange(0)
	}
}

// Seek shows index modulo the frame count. Playback continues if running.
func (c *Controller) Seek(index int) error {
	c.mu.Lock()
	if !c.timeline.Ready() {
		c.mu.Unlock()
		return &store.NotLoadedError{Index: index}
	}
	c.visible = clock.Wrap(index, c.timeline.TotalFrames())
	idx := c.visible
	c.mu.Unlock()
	c.onChange(idx)
	return nil
}

// Step advances one frame, wrapping at the end, and returns the wait before
// the next tick. Nothing happens while the timeline is not ready.
func (c *Controller) Step() time.Duration {
	interval, _ := c.advance(nil)
	return interval
}

// advance moves one frame forward. A non-nil owner must still be the running
// loop's stop channel, otherwise the loop was halted and nothing changes.
func (c *Controller) advance(owner chan struct{}) (time.Duration, bool) {
	c.mu.Lock()
	if owner != nil && c.stop != owner {
		c.mu.Unlock()
		return 0, false
	}
	if !c.timeline.Ready() {
		c.mu.Unlock()
		return idleInterval, true
	}
	c.visible = clock.Wrap(c.visible+1, c.timeline.TotalFrames())
	idx := c.visible
	interval := c.timeline.Descriptor().FrameInterval(c.speed)
	c.mu.Unlock()

	c.onChange(idx)
	if interval <= 0 {
		return idleInterval, true
	}
	return interval, true
}

// Rewind moves to frame 0 without changing the state, used when the frame
// count changes under a running controller.
func (c *Controller) Rewind() {
	c.mu.Lock()
	c.visible = 0
	c.mu.Unlock()
	c.onChange(0)
}

// SetSpeed changes the multiplier; it applies from the next tick.
func (c *Controller) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: got %g", clock.ErrSpeed, speed)
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	return nil
}

func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Visible returns the visible frame index.
func (c *Controller) Visible() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) run(stop chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		interval, ok := c.advance(stop)
		if !ok {
			return
		}
		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// haltLocked signals the loop to exit and returns its done channel.
func (c *Controller) haltLocked() chan struct{} {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	done := c.done
	c.stop = nil
	c.done = nil
	return done
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
