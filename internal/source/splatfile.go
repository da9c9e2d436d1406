package source

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mertkiray/promptvfx/internal/splat"
)

// splatRecord is the size of one gaussian in an antimatter15 .splat file:
// position (3×float32), scale (3×float32), rgba (4×uint8), rotation (4×uint8).
const splatRecord = 32

// SplatSource reads the centers, colors and opacities of a .splat file.
// Scales and rotations are ignored.
type SplatSource struct {
	path string
	opts options
}

func NewSplatSource(path string, opts ...Option) *SplatSource {
	return &SplatSource{path: path, opts: collect(opts)}
}

func (s *SplatSource) Name() string {
	return strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
}

func (s *SplatSource) AttributeSet() (*splat.AttributeSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	set, err := decodeSplat(data, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return set, nil
}

func (s *SplatSource) Close() error { return nil }

func decodeSplat(data []byte, o options) (*splat.AttributeSet, error) {
	if len(data) == 0 || len(data)%splatRecord != 0 {
		return nil, fmt.Errorf("size %d is not a multiple of %d", len(data), splatRecord)
	}
	n := len(data) / splatRecord
	pos := splat.NewColumn(n, 3)
	col := splat.NewColumn(n, 3)
	op := splat.NewColumn(n, 1)
	for i := 0; i < n; i++ {
		rec := data[i*splatRecord : (i+1)*splatRecord]
		for k := 0; k < 3; k++ {
			pos[i][k] = float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[k*4:])))
		}
		for k := 0; k < 3; k++ {
			col[i][k] = float64(rec[24+k]) / 255
		}
		op[i][0] = float64(rec[27]) / 255
	}
	return finish(pos, col, op, o)
}
