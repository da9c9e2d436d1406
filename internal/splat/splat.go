package splat

import (
	"fmt"
	"math"
)

// Role identifies which attribute column a time function animates.
type Role int

const (
	Position Role = iota
	Color
	Opacity
)

// Roles lists every role in evaluation order.
var Roles = []Role{Position, Color, Opacity}

func (r Role) String() string {
	switch r {
	case Position:
		return "position"
	case Color:
		return "color"
	case Opacity:
		return "opacity"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Width is the number of components per element for the role.
func (r Role) Width() int {
	if r == Opacity {
		return 1
	}
	return 3
}

// Column is an [N][k] block of per-element values.
type Column [][]float64

// NewColumn allocates a zeroed column of n rows and the given width.
func NewColumn(n, width int) Column {
	c := make(Column, n)
	backing := make([]float64, n*width)
	for i := range c {
		c[i] = backing[i*width : (i+1)*width : (i+1)*width]
	}
	return c
}

// Len returns N.
func (c Column) Len() int { return len(c) }

// CheckShape reports an error unless the column is exactly rows x width.
func (c Column) CheckShape(rows, width int) error {
	if len(c) != rows {
		return fmt.Errorf("%w: got %d rows, want %d", ErrShape, len(c), rows)
	}
	for i, row := range c {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(row), width)
		}
	}
	return nil
}

// CheckFinite reports the first NaN or infinite value.
func (c Column) CheckFinite() error {
	for i, row := range c {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: value %v at [%d][%d]", ErrNonFinite, v, i, j)
			}
		}
	}
	return nil
}

// Clone returns a deep copy backed by one allocation.
func (c Column) Clone() Column {
	if c == nil {
		return nil
	}
	width := 0
	if len(c) > 0 {
		width = len(c[0])
	}
	out := make(Column, len(c))
	backing := make([]float64, 0, len(c)*width)
	for i, row := range c {
		start := len(backing)
		backing = append(backing, row...)
		out[i] = backing[start:len(backing):len(backing)]
	}
	return out
}

// Equal reports element-wise equality.
func (c Column) Equal(o Column) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if len(c[i]) != len(o[i]) {
			return false
		}
		for j := range c[i] {
			if c[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}
