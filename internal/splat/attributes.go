package splat

import (
	"errors"
	"fmt"
)

var (
	ErrShape     = errors.New("shape mismatch")
	ErrNonFinite = errors.New("non-finite value")
	ErrEmpty     = errors.New("attribute set has no elements")
)

// AttributeSet is the immutable base dataset of an animated object.
// Callers must treat the columns as read-only once the set is built.
type AttributeSet struct {
	Positions Column // [N][3]
	Colors    Column // [N][3], expected in [0,1]
	Opacities Column // [N][1], expected in [0,1]
}

// NewAttributeSet validates the columns and returns a set that owns copies of them.
func NewAttributeSet(positions, colors, opacities Column) (*AttributeSet, error) {
	set := &AttributeSet{
		Positions: positions.Clone(),
		Colors:    colors.Clone(),
		Opacities: opacities.Clone(),
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate checks that the three columns share N and have the role widths.
// Color and opacity ranges are not enforced.
func (s *AttributeSet) Validate() error {
	if s == nil {
		return errors.New("nil attribute set")
	}
	n := s.Positions.Len()
	if n == 0 {
		return ErrEmpty
	}
	for _, role := range Roles {
		if err := s.Column(role).CheckShape(n, role.Width()); err != nil {
			return fmt.Errorf("%s column: %w", role, err)
		}
	}
	return nil
}

// Len returns the number of elements.
func (s *AttributeSet) Len() int {
	return s.Positions.Len()
}

// Column returns the baseline column for the role.
func (s *AttributeSet) Column(role Role) Column {
	switch role {
	case Position:
		return s.Positions
	case Color:
		return s.Colors
	default:
		return s.Opacities
	}
}

// Sample returns a set holding the first n elements, sharing storage.
// Used to probe candidate functions cheaply.
func (s *AttributeSet) Sample(n int) *AttributeSet {
	if n <= 0 || n >= s.Len() {
		return s
	}
	return &AttributeSet{
		Positions: s.Positions[:n:n],
		Colors:    s.Colors[:n:n],
		Opacities: s.Opacities[:n:n],
	}
}

// Bounds returns the axis-aligned min and max of the positions.
func (s *AttributeSet) Bounds() (min, max [3]float64) {
	return columnBounds(s.Positions)
}

// Frame is an AttributeSet materialised at one sampled time.
type Frame struct {
	Index     int
	T         float64
	Positions Column
	Colors    Column
	Opacities Column
}

// BaselineFrame wraps the set itself, unmodified, as a frame.
func BaselineFrame(index int, t float64, s *AttributeSet) *Frame {
	return &Frame{
		Index:     index,
		T:         t,
		Positions: s.Positions,
		Colors:    s.Colors,
		Opacities: s.Opacities,
	}
}

// Column returns the frame column for the role.
func (f *Frame) Column(role Role) Column {
	switch role {
	case Position:
		return f.Positions
	case Color:
		return f.Colors
	default:
		return f.Opacities
	}
}

// Len returns the number of elements.
func (f *Frame) Len() int {
	return f.Positions.Len()
}

// Bounds returns the axis-aligned min and max of the frame positions.
func (f *Frame) Bounds() (min, max [3]float64) {
	return columnBounds(f.Positions)
}

// Centroid returns the mean position.
func (f *Frame) Centroid() [3]float64 {
	var c [3]float64
	n := f.Positions.Len()
	if n == 0 {
		return c
	}
	for _, p := range f.Positions {
		for k := 0; k < 3 && k < len(p); k++ {
			c[k] += p[k]
		}
	}
	for k := range c {
		c[k] /= float64(n)
	}
	return c
}

func columnBounds(c Column) (min, max [3]float64) {
	for i, p := range c {
		for k := 0; k < 3 && k < len(p); k++ {
			if i == 0 || p[k] < min[k] {
				min[k] = p[k]
			}
			if i == 0 || p[k] > max[k] {
				max[k] = p[k]
			}
		}
	}
	return min, max
}
