package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mertkiray/promptvfx/internal/splat"
)

// PointCloud is the YAML layout of an object file.
type PointCloud struct {
	Name   string  `yaml:"name,omitempty"`
	Points []Point `yaml:"points"`
}

type Point struct {
	Position [3]float64 `yaml:"position"`
	Color    []float64  `yaml:"color,omitempty"`   // white if missing
	Opacity  *float64   `yaml:"opacity,omitempty"` // 1 if missing
}

// YAMLSource reads a PointCloud file.
type YAMLSource struct {
	path string
	opts options
}

func NewYAMLSource(path string, opts ...Option) *YAMLSource {
	return &YAMLSource{path: path, opts: collect(opts)}
}

func (s *YAMLSource) Name() string {
	return strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
}

func (s *YAMLSource) AttributeSet() (*splat.AttributeSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var pc PointCloud
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	set, err := pc.AttributeSet(s.opts.center)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return set, nil
}

func (s *YAMLSource) Close() error { return nil }

// AttributeSet converts the cloud to columns.
func (pc *PointCloud) AttributeSet(centered bool) (*splat.AttributeSet, error) {
	n := len(pc.Points)
	if n == 0 {
		return nil, fmt.Errorf("point cloud has no points")
	}
	pos := splat.NewColumn(n, 3)
	col := splat.NewColumn(n, 3)
	op := splat.NewColumn(n, 1)
	for i, p := range pc.Points {
		copy(pos[i], p.Position[:])
		switch len(p.Color) {
		case 0:
			col[i][0], col[i][1], col[i][2] = 1, 1, 1
		case 3:
			copy(col[i], p.Color)
		default:
			return nil, fmt.Errorf("point %d: color has %d components, want 3", i, len(p.Color))
		}
		op[i][0] = 1
		if p.Opacity != nil {
			op[i][0] = *p.Opacity
		}
		if err := unitRange(append(col[i][:3:3], op[i][0])); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
	}
	if err := pos.CheckFinite(); err != nil {
		return nil, err
	}
	return finish(pos, col, op, options{center: centered})
}

func unitRange(vals []float64) error {
	for _, v := range vals {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("color or opacity %g outside [0, 1]", v)
		}
	}
	return nil
}

// WritePointCloud saves set as a PointCloud file.
func WritePointCloud(path, name string, set *splat.AttributeSet) error {
	pc := PointCloud{Name: name, Points: make([]Point, set.Len())}
	for i := range pc.Points {
		o := set.Opacities[i][0]
		pc.Points[i] = Point{
			Position: [3]float64{set.Positions[i][0], set.Positions[i][1], set.Positions[i][2]},
			Color:    append([]float64(nil), set.Colors[i]...),
			Opacity:  &o,
		}
	}
	data, err := yaml.Marshal(&pc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
