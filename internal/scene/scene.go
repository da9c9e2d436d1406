package scene

import (
	"sync"

	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/splat"
)

// Scene is the viewer that displays frames. Each added frame is a separate
// node toggled by index; at most one is expected to be visible.
type Scene interface {
	SetObject(set *splat.AttributeSet)
	AddFrame(frame *splat.Frame)
	SetVisible(index int, visible bool)
	Clear()
}

// Recorder is an in-memory Scene used for headless runs and tests.
type Recorder struct {
	mu      sync.Mutex
	object  *splat.AttributeSet
	frames  map[int]*splat.Frame
	visible map[int]bool
	history []int
}

func NewRecorder() *Recorder {
	return &Recorder{
		frames:  make(map[int]*splat.Frame),
		visible: make(map[int]bool),
	}
}

func (r *Recorder) SetObject(set *splat.AttributeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.object = set
}

func (r *Recorder) AddFrame(frame *splat.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[frame.Index] = frame
}

func (r *Recorder) SetVisible(index int, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if visible {
		r.history = append(r.history, index)
		r.visible[index] = true
		return
	}
	delete(r.visible, index)
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = make(map[int]*splat.Frame)
	r.visible = make(map[int]bool)
}

// Object returns the last object passed to SetObject.
func (r *Recorder) Object() *splat.AttributeSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.object
}

// FrameCount returns the number of frames currently held.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Visible returns the visible indices, unordered.
func (r *Recorder) Visible() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.visible))
	for idx := range r.visible {
		out = append(out, idx)
	}
	return out
}

// History returns every index that was made visible, in order.
func (r *Recorder) History() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.history...)
}

// LogScene logs scene operations and forwards them to an optional inner scene.
type LogScene struct {
	Inner Scene
	Log   *logger.Logger
}

func (s *LogScene) SetObject(set *splat.AttributeSet) {
	s.Log.Info("object set: %d elements", set.Len())
	if s.Inner != nil {
		s.Inner.SetObject(set)
	}
}

func (s *LogScene) AddFrame(frame *splat.Frame) {
	s.Log.Debug("frame %d added (t=%.3f)", frame.Index, frame.T)
	if s.Inner != nil {
		s.Inner.AddFrame(frame)
	}
}

func (s *LogScene) SetVisible(index int, visible bool) {
	if visible {
		s.Log.Debug("show frame %d", index)
	}
	if s.Inner != nil {
		s.Inner.SetVisible(index, visible)
	}
}

func (s *LogScene) Clear() {
	s.Log.Debug("scene cleared")
	if s.Inner != nil {
		s.Inner.Clear()
	}
}
