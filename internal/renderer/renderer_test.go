package renderer

import (
	"image/color"
	"testing"

	"github.com/mertkiray/promptvfx/internal/splat"
)

func frameOf(points [][3]float64, rgb [3]float64, alpha float64) *splat.Frame {
	n := len(points)
	f := &splat.Frame{
		Positions: splat.NewColumn(n, 3),
		Colors:    splat.NewColumn(n, 3),
		Opacities: splat.NewColumn(n, 1),
	}
	for i, p := range points {
		copy(f.Positions[i], p[:])
		copy(f.Colors[i], rgb[:])
		f.Opacities[i][0] = alpha
	}
	return f
}

func TestBoundsOf(t *testing.T) {
	a := frameOf([][3]float64{{0, 0, 0}, {1, 2, 3}}, [3]float64{}, 1)
	b := frameOf([][3]float64{{-1, 5, 0}}, [3]float64{}, 1)
	got := BoundsOf([]*splat.Frame{a, nil, b})

	want := Bounds{Min: [3]float64{-1, 0, 0}, Max: [3]float64{1, 5, 3}}
	if got != want {
		t.Errorf("BoundsOf = %+v, want %+v", got, want)
	}
}

func TestRenderFrameDrawsPoint(t *testing.T) {
	tests := []struct {
		name        string
		supersample int
	}{
		{"direct", 1},
		{"supersampled", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frameOf([][3]float64{{0, 0, 0}}, [3]float64{1, 0, 0}, 1)
			opts := DefaultOptions()
			opts.Width, opts.Height = 64, 48
			opts.PointRadius = 4
			opts.Supersample = tt.supersample
			opts.Label = false

			img := RenderFrame(f, Bounds{Min: [3]float64{-1, -1, 0}, Max: [3]float64{1, 1, 0}}, opts)
			if img.Rect.Dx() != 64 || img.Rect.Dy() != 48 {
				t.Fatalf("Size = %v", img.Rect)
			}

			center := img.RGBAAt(32, 24)
			if center.R < 200 || center.G > 30 {
				t.Errorf("Center pixel = %v, want red", center)
			}
			corner := img.RGBAAt(1, 46)
			if corner != (color.RGBA{A: 255}) {
				t.Errorf("Corner pixel = %v, want background", corner)
			}
		})
	}
}

func TestRenderFrameTransparentPointInvisible(t *testing.T) {
	f := frameOf([][3]float64{{0, 0, 0}}, [3]float64{1, 1, 1}, 0)
	opts := DefaultOptions()
	opts.Width, opts.Height = 32, 32
	opts.Label = false

	img := RenderFrame(f, Bounds{Min: [3]float64{-1, -1, 0}, Max: [3]float64{1, 1, 0}}, opts)
	if got := img.RGBAAt(16, 16); got != (color.RGBA{A: 255}) {
		t.Errorf("Center pixel = %v, want background", got)
	}
}

func TestRenderFrameLabel(t *testing.T) {
	f := frameOf([][3]float64{{5, 5, 0}}, [3]float64{0, 0, 1}, 1)
	opts := DefaultOptions()
	opts.Width, opts.Height = 200, 40

	img := RenderFrame(f, Bounds{}, opts)
	lit := 0
	for y := 8; y < 22; y++ {
		for x := 8; x < 120; x++ {
			if img.RGBAAt(x, y).G > 128 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("Label pixels missing")
	}
}

func TestNewStamp(t *testing.T) {
	stamp, err := NewStamp("drift | shape:grid", 2)
	if err != nil {
		t.Fatalf("NewStamp failed: %v", err)
	}
	size := stamp.Rect.Dx()
	if size != stamp.Rect.Dy() || size%2 != 0 || size < 29*2 {
		t.Fatalf("Stamp size = %v", stamp.Rect)
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	if got := stamp.RGBAAt(0, 0); got != white {
		t.Errorf("Quiet zone pixel = %v, want white", got)
	}
	// The finder pattern starts after the four module quiet zone.
	if got := stamp.RGBAAt(8, 8); got != black {
		t.Errorf("Finder pixel = %v, want black", got)
	}
}

func TestRenderFrameStampInLabelBand(t *testing.T) {
	stamp, err := NewStamp("fade | shape:sphere", 1)
	if err != nil {
		t.Fatalf("NewStamp failed: %v", err)
	}
	f := frameOf([][3]float64{{0, 0, 0}}, [3]float64{0, 1, 0}, 1)
	opts := DefaultOptions()
	opts.Width, opts.Height = 200, 120
	opts.Stamp = stamp

	band := LabelBounds(opts)
	if band.Dy() < stamp.Rect.Dy()+2*stampInset {
		t.Errorf("Label band %v does not hold a %v stamp", band, stamp.Rect)
	}

	img := RenderFrame(f, Bounds{Min: [3]float64{-1, -1, 0}, Max: [3]float64{1, 1, 0}}, opts)
	x0 := opts.Width - stampInset - stamp.Rect.Dx()
	if got := img.RGBAAt(x0, stampInset); got != stamp.RGBAAt(0, 0) {
		t.Errorf("Stamp corner = %v, want %v", got, stamp.RGBAAt(0, 0))
	}
	if got := img.RGBAAt(x0+4, stampInset+4); got != stamp.RGBAAt(4, 4) {
		t.Errorf("Stamp finder = %v, want %v", got, stamp.RGBAAt(4, 4))
	}
}

func TestDepthOrder(t *testing.T) {
	pos := splat.Column{{0, 0, 3}, {0, 0, -1}, {0, 0, 1}}
	got := depthOrder(pos)
	want := []int{1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("depthOrder = %v, want %v", got, want)
		}
	}
}
