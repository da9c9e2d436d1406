package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptvfx.yaml")
	doc := "fps: 24\nobject: shape:cube\neval_timeout: 500ms\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FPS != 24 || cfg.Object != "shape:cube" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.EvalTimeout != 500*time.Millisecond {
		t.Errorf("EvalTimeout = %s", cfg.EvalTimeout)
	}
	if cfg.Duration != 3 || cfg.Speed != 1 {
		t.Errorf("Defaults lost: duration %d speed %g", cfg.Duration, cfg.Speed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"short duration", func(c *Config) { c.Duration = 0 }, "duration"},
		{"negative speed", func(c *Config) { c.Speed = -1 }, "speed"},
		{"both sources", func(c *Config) { c.Preset, c.Generate = "spin", "a dragon" }, "mutually exclusive"},
		{"tiny export", func(c *Config) { c.Export, c.Width = "out.mp4", 8 }, "export size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
