package scene

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mertkiray/promptvfx/internal/logger"
	"github.com/mertkiray/promptvfx/internal/splat"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < 3; i++ {
		r.AddFrame(&splat.Frame{Index: i})
	}
	r.SetVisible(0, true)
	r.SetVisible(0, false)
	r.SetVisible(2, true)

	if r.FrameCount() != 3 {
		t.Errorf("FrameCount = %d", r.FrameCount())
	}
	if v := r.Visible(); len(v) != 1 || v[0] != 2 {
		t.Errorf("Visible = %v", v)
	}
	if h := r.History(); len(h) != 2 || h[0] != 0 || h[1] != 2 {
		t.Errorf("History = %v", h)
	}

	r.Clear()
	if r.FrameCount() != 0 || len(r.Visible()) != 0 {
		t.Error("Clear left frames behind")
	}
}

func TestLogSceneForwards(t *testing.T) {
	var buf bytes.Buffer
	inner := NewRecorder()
	s := &LogScene{Inner: inner, Log: logger.New(&buf, logger.LevelDebug, "scene")}

	s.AddFrame(&splat.Frame{Index: 4, T: 0.5})
	s.SetVisible(4, true)

	if inner.FrameCount() != 1 {
		t.Error("Frame not forwarded")
	}
	if !strings.Contains(buf.String(), "show frame 4") {
		t.Errorf("Missing log line: %q", buf.String())
	}
}
