package source

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/mertkiray/promptvfx/internal/splat"
)

// Shapes lists the procedural objects ShapeSource can build.
var Shapes = []string{"sphere", "cube", "grid", "helix"}

// ShapeSource builds a procedural point cloud of unit size with seeded
// random colors, for trying animations without an object file.
type ShapeSource struct {
	shape string
	opts  options
}

func NewShapeSource(shape string, opts ...Option) (*ShapeSource, error) {
	if !slices.Contains(Shapes, shape) {
		return nil, fmt.Errorf("unknown shape %q, want one of %v", shape, Shapes)
	}
	o := collect(opts)
	if o.count < 1 {
		return nil, fmt.Errorf("shape %s: count %d < 1", shape, o.count)
	}
	return &ShapeSource{shape: shape, opts: o}, nil
}

func (s *ShapeSource) Name() string { return s.shape }

func (s *ShapeSource) AttributeSet() (*splat.AttributeSet, error) {
	n := s.opts.count
	pos := splat.NewColumn(n, 3)
	switch s.shape {
	case "sphere":
		fibonacciSphere(pos)
	case "cube":
		cube(pos)
	case "grid":
		grid(pos)
	case "helix":
		helix(pos)
	}

	r := rand.New(rand.NewSource(s.opts.seed))
	col := splat.NewColumn(n, 3)
	op := splat.NewColumn(n, 1)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			col[i][k] = 0.2 + 0.8*r.Float64()
		}
		op[i][0] = 1
	}
	return finish(pos, col, op, s.opts)
}

func (s *ShapeSource) Close() error { return nil }

// fibonacciSphere spreads points evenly over the unit sphere.
func fibonacciSphere(pos splat.Column) {
	n := float64(len(pos))
	golden := math.Pi * (3 - math.Sqrt(5))
	for i, p := range pos {
		y := 1 - 2*(float64(i)+0.5)/n
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		p[0], p[1], p[2] = r*math.Cos(theta), y, r*math.Sin(theta)
	}
}

// cube fills a lattice inside [-0.5, 0.5]^3, row by row.
func cube(pos splat.Column) {
	side := int(math.Ceil(math.Cbrt(float64(len(pos)))))
	for i, p := range pos {
		x, y, z := i%side, (i/side)%side, i/(side*side)
		p[0], p[1], p[2] = lattice(x, side), lattice(y, side), lattice(z, side)
	}
}

// grid lays points on the z=0 plane.
func grid(pos splat.Column) {
	side := int(math.Ceil(math.Sqrt(float64(len(pos)))))
	for i, p := range pos {
		p[0], p[1], p[2] = lattice(i%side, side), lattice(i/side, side), 0
	}
}

// helix winds three turns around the z axis.
func helix(pos splat.Column) {
	n := len(pos)
	for i, p := range pos {
		u := 0.0
		if n > 1 {
			u = float64(i) / float64(n-1)
		}
		a := 6 * math.Pi * u
		p[0], p[1], p[2] = 0.5*math.Cos(a), 0.5*math.Sin(a), u-0.5
	}
}

func lattice(i, side int) float64 {
	if side <= 1 {
		return 0
	}
	return float64(i)/float64(side-1) - 0.5
}
