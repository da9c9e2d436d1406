package clock

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuration = errors.New("duration must be at least 1 second")
	ErrFPS      = errors.New("fps must be positive")
	ErrSpeed    = errors.New("speed must be positive")
)

// Descriptor fixes the sampling schedule of an animation.
type Descriptor struct {
	DurationSeconds int `yaml:"duration"`
	FPS             int `yaml:"fps"`
}

// NewDescriptor returns a validated descriptor.
func NewDescriptor(durationSeconds, fps int) (Descriptor, error) {
	d := Descriptor{DurationSeconds: durationSeconds, FPS: fps}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func (d Descriptor) Validate() error {
	if d.DurationSeconds < 1 {
		return fmt.Errorf("%w: got %d", ErrDuration, d.DurationSeconds)
	}
	if d.FPS <= 0 {
		return fmt.Errorf("%w: got %d", ErrFPS, d.FPS)
	}
	return nil
}

// TotalFrames is duration * fps.
func (d Descriptor) TotalFrames() int {
	return d.DurationSeconds * d.FPS
}

// TimeAt returns t_i = i / fps.
func (d Descriptor) TimeAt(index int) float64 {
	return float64(index) / float64(d.FPS)
}

// Wrap maps any index, including negative ones, into [0, TotalFrames).
func (d Descriptor) Wrap(index int) int {
	return Wrap(index, d.TotalFrames())
}

// FrameInterval is the wall-clock wait between ticks: (1/fps) / speed.
func (d Descriptor) FrameInterval(speed float64) time.Duration {
	return FrameInterval(d.FPS, speed)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%ds @ %d FPS (%d frames)", d.DurationSeconds, d.FPS, d.TotalFrames())
}

// Sample is one entry of the schedule.
type Sample struct {
	Index int
	T     float64
}

// SampleTimes returns the full schedule in increasing index order.
// An invalid descriptor yields an empty schedule.
func SampleTimes(d Descriptor) []Sample {
	if d.Validate() != nil {
		return nil
	}
	total := d.TotalFrames()
	samples := make([]Sample, total)
	for i := 0; i < total; i++ {
		samples[i] = Sample{Index: i, T: d.TimeAt(i)}
	}
	return samples
}

// Wrap maps index into [0, total). total <= 0 yields 0.
func Wrap(index, total int) int {
	if total <= 0 {
		return 0
	}
	index %= total
	if index < 0 {
		index += total
	}
	return index
}

// FrameInterval converts fps and a speed multiplier into a tick duration.
func FrameInterval(fps int, speed float64) time.Duration {
	if fps <= 0 || speed <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / (float64(fps) * speed))
}
