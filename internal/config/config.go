package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a run needs. Zero values in a file keep the
// defaults; command-line flags are applied on top by the caller.
type Config struct {
	// Object
	Object     string `yaml:"object"` // path or shape:<name>
	Center     bool   `yaml:"center"`
	ShapeCount int    `yaml:"shape_count"`
	Seed       int64  `yaml:"seed"`

	// Animation
	Animation    string `yaml:"animation"` // file or directory (latest file)
	Preset       string `yaml:"preset"`
	Generate     string `yaml:"generate"` // description to send to the LLM
	Title        string `yaml:"title"`
	Feedback     string `yaml:"feedback"`
	AnimationDir string `yaml:"animation_dir"` // where generated animations are saved

	// Timeline
	Duration int     `yaml:"duration"` // seconds
	FPS      int     `yaml:"fps"`
	Speed    float64 `yaml:"speed"`

	// Evaluation
	Workers     int           `yaml:"workers"` // 0 means one per physical core
	EvalTimeout time.Duration `yaml:"eval_timeout"`
	SampleSize  int           `yaml:"sample_size"`

	// LLM
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	MaxAttempts int    `yaml:"max_attempts"`
	Samples     int    `yaml:"samples"` // candidates generated, the best scored one is kept

	// Output
	Play         float64 `yaml:"play"` // seconds of headless playback, 0 skips
	Export       string  `yaml:"export"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	VideoEncoder string  `yaml:"video_encoder"` // auto-detected if empty
	Quality      int     `yaml:"quality"`
	Loops        int     `yaml:"loops"`
	Stamp        bool    `yaml:"stamp"` // QR code in the preview label band
	Watch        bool    `yaml:"watch"`
	ShowStats    bool    `yaml:"show_stats"`
	LogLevel     string  `yaml:"log_level"`

	BuildVersion string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Object:       "shape:sphere",
		Center:       true,
		ShapeCount:   512,
		Seed:         1,
		AnimationDir: "animations",
		Duration:     3,
		FPS:          8,
		Speed:        1,
		EvalTimeout:  2 * time.Second,
		SampleSize:   64,
		Provider:     "anthropic",
		MaxAttempts:  5,
		Samples:      1,
		Width:        640,
		Height:       480,
		Quality:      23,
		LogLevel:     "info",
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Object == "" {
		errs = append(errs, errors.New("object is required"))
	}
	if c.Duration < 1 {
		errs = append(errs, fmt.Errorf("duration %d < 1", c.Duration))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", c.FPS))
	}
	if c.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed %g must be positive", c.Speed))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d < 0", c.Workers))
	}
	if c.EvalTimeout < 0 {
		errs = append(errs, fmt.Errorf("eval_timeout %s < 0", c.EvalTimeout))
	}
	if c.ShapeCount < 1 {
		errs = append(errs, fmt.Errorf("shape_count %d < 1", c.ShapeCount))
	}
	if c.Export != "" && (c.Width < 16 || c.Height < 16) {
		errs = append(errs, fmt.Errorf("export size %dx%d too small", c.Width, c.Height))
	}
	if c.Samples < 1 {
		errs = append(errs, fmt.Errorf("samples %d < 1", c.Samples))
	}
	if c.Play < 0 {
		errs = append(errs, fmt.Errorf("play %g < 0", c.Play))
	}
	sources := 0
	for _, s := range []string{c.Preset, c.Generate} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		errs = append(errs, errors.New("preset and generate are mutually exclusive"))
	}
	return errors.Join(errs...)
}
