package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mertkiray/promptvfx/internal/splat"
)

// Source provides the base object an animation is applied to.
type Source interface {
	Name() string
	AttributeSet() (*splat.AttributeSet, error)
	Close() error
}

// Option adjusts how a source builds its set.
type Option func(*options)

type options struct {
	center bool
	seed   int64
	count  int
}

// Centered moves the object so that its mean position is the origin.
func Centered() Option {
	return func(o *options) { o.center = true }
}

// WithSeed fixes the random colors of procedural shapes.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithCount sets the element count of procedural shapes.
func WithCount(n int) Option {
	return func(o *options) { o.count = n }
}

func collect(opts []Option) options {
	o := options{seed: 1, count: 512}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Open resolves ref to a source: a .yaml/.yml point cloud, a .splat file,
// or a procedural shape written as "shape:<name>".
func Open(ref string, opts ...Option) (Source, error) {
	if name, ok := strings.CutPrefix(ref, "shape:"); ok {
		return NewShapeSource(name, opts...)
	}
	if _, err := os.Stat(ref); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml":
		return NewYAMLSource(ref, opts...), nil
	case ".splat":
		return NewSplatSource(ref, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported object file %s", ref)
	}
}

// center subtracts the mean position in place.
func center(pos splat.Column) {
	n := pos.Len()
	if n == 0 {
		return
	}
	var mean [3]float64
	for _, p := range pos {
		for k := 0; k < 3; k++ {
			mean[k] += p[k]
		}
	}
	for k := range mean {
		mean[k] /= float64(n)
	}
	for _, p := range pos {
		for k := 0; k < 3; k++ {
			p[k] -= mean[k]
		}
	}
}

func finish(pos, col, op splat.Column, o options) (*splat.AttributeSet, error) {
	if o.center {
		center(pos)
	}
	return splat.NewAttributeSet(pos, col, op)
}
