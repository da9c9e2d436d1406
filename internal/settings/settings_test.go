package settings

import (
	"errors"
	"testing"

	"github.com/quasilyte/gdata/v2"

	"github.com/mertkiray/promptvfx/internal/clock"
)

func isolatedHome(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
}

func TestDegradedMode(t *testing.T) {
	m := NewManager(nil, nil)
	if m.Persistent() {
		t.Error("Manager without store claims persistence")
	}
	if m.Prefs() != DefaultPrefs() {
		t.Errorf("Prefs = %+v, want defaults", m.Prefs())
	}
	if err := m.Update(Prefs{FPS: 24, Speed: 0.5}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Errorf("Save in degraded mode = %v", err)
	}
	if m.Prefs().FPS != 24 {
		t.Errorf("FPS = %d", m.Prefs().FPS)
	}
}

func TestSaveLoad(t *testing.T) {
	isolatedHome(t)
	store, err := gdata.Open(gdata.Config{AppName: "promptvfx_test_prefs"})
	if err != nil {
		t.Fatalf("gdata.Open failed: %v", err)
	}

	m1 := NewManager(store, nil)
	want := Prefs{FPS: 12, Speed: 2, Workers: 3}
	if err := m1.Update(want); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := m1.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m2 := NewManager(store, nil)
	if got := m2.Prefs(); got != want {
		t.Errorf("Loaded %+v, want %+v", got, want)
	}
}

func TestUpdateRejects(t *testing.T) {
	tests := []struct {
		name  string
		prefs Prefs
		want  error
	}{
		{"zero fps", Prefs{FPS: 0, Speed: 1}, clock.ErrFPS},
		{"zero speed", Prefs{FPS: 8, Speed: 0}, clock.ErrSpeed},
		{"negative speed", Prefs{FPS: 8, Speed: -2}, clock.ErrSpeed},
	}

	m := NewManager(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.Update(tt.prefs); !errors.Is(err, tt.want) {
				t.Errorf("Update = %v, want %v", err, tt.want)
			}
		})
	}
	if m.Prefs() != DefaultPrefs() {
		t.Error("Rejected update changed prefs")
	}
}
