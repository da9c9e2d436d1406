package splat

import (
	"errors"
	"math"
	"testing"
)

func uniformSet(t *testing.T, n int) *AttributeSet {
	t.Helper()
	pos := NewColumn(n, 3)
	col := NewColumn(n, 3)
	op := NewColumn(n, 1)
	for i := 0; i < n; i++ {
		col[i][0] = 1
		op[i][0] = 1
	}
	set, err := NewAttributeSet(pos, col, op)
	if err != nil {
		t.Fatalf("NewAttributeSet failed: %v", err)
	}
	return set
}

func TestNewAttributeSetValidation(t *testing.T) {
	tests := []struct {
		name      string
		positions Column
		colors    Column
		opacities Column
		wantErr   error
	}{
		{"ok", NewColumn(4, 3), NewColumn(4, 3), NewColumn(4, 1), nil},
		{"empty", NewColumn(0, 3), NewColumn(0, 3), NewColumn(0, 1), ErrEmpty},
		{"color rows", NewColumn(4, 3), NewColumn(3, 3), NewColumn(4, 1), ErrShape},
		{"opacity width", NewColumn(4, 3), NewColumn(4, 3), NewColumn(4, 3), ErrShape},
		{"ragged", NewColumn(2, 3), Column{{1, 0, 0}, {1, 0}}, NewColumn(2, 1), ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAttributeSet(tt.positions, tt.colors, tt.opacities)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAttributeSetOwnsCopies(t *testing.T) {
	pos := Column{{1, 2, 3}}
	set, err := NewAttributeSet(pos, Column{{0, 0, 0}}, Column{{1}})
	if err != nil {
		t.Fatalf("NewAttributeSet failed: %v", err)
	}
	pos[0][0] = 99
	if set.Positions[0][0] != 1 {
		t.Errorf("Set was mutated through caller slice: %v", set.Positions[0])
	}
}

func TestColumnCheckFinite(t *testing.T) {
	c := Column{{0, 1, 2}, {math.NaN(), 0, 0}}
	if err := c.CheckFinite(); !errors.Is(err, ErrNonFinite) {
		t.Errorf("Expected ErrNonFinite, got %v", err)
	}
	c[1][0] = math.Inf(1)
	if err := c.CheckFinite(); !errors.Is(err, ErrNonFinite) {
		t.Errorf("Expected ErrNonFinite for Inf, got %v", err)
	}
	c[1][0] = 0
	if err := c.CheckFinite(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := Column{{1, 2, 3}, {4, 5, 6}}
	d := c.Clone()
	d[1][2] = 0
	if c[1][2] != 6 {
		t.Errorf("Clone shares storage with source")
	}
	if !c.Equal(Column{{1, 2, 3}, {4, 5, 6}}) {
		t.Errorf("Source changed: %v", c)
	}
}

func TestFrameHelpers(t *testing.T) {
	set := uniformSet(t, 4)
	set.Positions[1][0] = 2
	set.Positions[3][2] = -2

	f := BaselineFrame(0, 0, set)
	min, max := f.Bounds()
	if min != [3]float64{0, 0, -2} || max != [3]float64{2, 0, 0} {
		t.Errorf("Unexpected bounds: %v %v", min, max)
	}
	c := f.Centroid()
	if c != [3]float64{0.5, 0, -0.5} {
		t.Errorf("Unexpected centroid: %v", c)
	}
	if got := set.Sample(2).Len(); got != 2 {
		t.Errorf("Sample(2) has %d elements", got)
	}
	if set.Sample(10) != set {
		t.Errorf("Sample larger than N should return the set")
	}
}

func TestRoleWidth(t *testing.T) {
	if Position.Width() != 3 || Color.Width() != 3 || Opacity.Width() != 1 {
		t.Errorf("Unexpected widths")
	}
	if Opacity.String() != "opacity" {
		t.Errorf("Unexpected name %q", Opacity.String())
	}
}
