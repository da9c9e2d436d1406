package effects

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/timefn"
)

// presets maps a name to its keyframes. Every preset starts at rest so the
// t=0 baseline matches the first evaluated frames.
var presets = map[string]func() []Keyframe{
	"identity": func() []Keyframe {
		return []Keyframe{Rest(0)}
	},
	"spin": func() []Keyframe {
		end := Rest(1)
		end.Spin = 2 * math.Pi
		return []Keyframe{Rest(0), end}
	},
	"pulse": func() []Keyframe {
		peak := Rest(0.5)
		peak.Scale = 1.3
		peak.Tint = [3]float64{1.2, 1.2, 1.2}
		return []Keyframe{Rest(0), peak, Rest(1)}
	},
	"rise": func() []Keyframe {
		end := Rest(1)
		end.Offset = [3]float64{0, 0, 1}
		return []Keyframe{Rest(0), end}
	},
	"fade": func() []Keyframe {
		end := Rest(1)
		end.Alpha = 0
		return []Keyframe{Rest(0), Rest(0.2), end}
	},
	"explode": func() []Keyframe {
		burst := Rest(0.6)
		burst.Scale = 3
		burst.Tint = [3]float64{1, 0.6, 0.2}
		burst.Alpha = 0.6
		end := burst
		end.Time = 1
		end.Scale = 4
		end.Alpha = 0
		return []Keyframe{Rest(0), Rest(0.2), burst, end}
	},
}

// Names returns the preset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the preset's function triple for an animation of duration
// seconds.
func New(name string, duration int) (timefn.Triple, error) {
	build, ok := presets[strings.ToLower(name)]
	if !ok {
		return timefn.Triple{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	if duration < 1 {
		return timefn.Triple{}, fmt.Errorf("preset %s: duration must be at least 1 second", name)
	}
	return FromKeyframes(name, build(), float64(duration)), nil
}

// FromKeyframes builds native functions that apply the interpolated
// transform at t/duration.
func FromKeyframes(name string, keyframes []Keyframe, duration float64) timefn.Triple {
	at := func(t float64) Keyframe {
		return Interpolate(keyframes, t/duration)
	}

	position := timefn.Func(splat.Position, name+"/positions", func(t float64, c splat.Column) (splat.Column, error) {
		kf := at(t)
		centroid := (&splat.Frame{Positions: c}).Centroid()
		sin, cos := math.Sincos(kf.Spin)
		for _, p := range c {
			x := (p[0] - centroid[0]) * kf.Scale
			y := (p[1] - centroid[1]) * kf.Scale
			z := (p[2] - centroid[2]) * kf.Scale
			p[0] = centroid[0] + x*cos - y*sin + kf.Offset[0]
			p[1] = centroid[1] + x*sin + y*cos + kf.Offset[1]
			p[2] = centroid[2] + z + kf.Offset[2]
		}
		return c, nil
	})

	color := timefn.Func(splat.Color, name+"/colors", func(t float64, c splat.Column) (splat.Column, error) {
		kf := at(t)
		for _, rgb := range c {
			for k := range rgb {
				rgb[k] = clamp01(rgb[k] * kf.Tint[k])
			}
		}
		return c, nil
	})

	opacity := timefn.Func(splat.Opacity, name+"/opacities", func(t float64, c splat.Column) (splat.Column, error) {
		kf := at(t)
		for _, o := range c {
			o[0] = clamp01(o[0] * kf.Alpha)
		}
		return c, nil
	})

	return timefn.Triple{Position: position, Color: color, Opacity: opacity}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
