package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mertkiray/promptvfx/internal/splat"
	"github.com/mertkiray/promptvfx/internal/system"
)

// Options controls how a frame is drawn.
type Options struct {
	Width, Height int
	Background    color.RGBA
	PointRadius   float64 // in output pixels
	Supersample   int     // canvas scale before downsampling, 1 disables
	Margin        float64 // fraction of the shorter side left empty
	Label         bool
	Stamp         *image.RGBA // drawn top right in the label band, see NewStamp
}

func DefaultOptions() Options {
	return Options{
		Width:       640,
		Height:      480,
		Background:  colornames.Black,
		PointRadius: 2.5,
		Supersample: 2,
		Margin:      0.08,
		Label:       true,
	}
}

// Bounds is the world-space box mapped onto the image. Keeping it fixed
// across frames keeps the camera still while the object moves.
type Bounds struct {
	Min, Max [3]float64
}

// BoundsOf returns the union of the position bounds of frames.
func BoundsOf(frames []*splat.Frame) Bounds {
	var b Bounds
	first := true
	for _, f := range frames {
		if f == nil || f.Len() == 0 {
			continue
		}
		lo, hi := f.Bounds()
		if first {
			b.Min, b.Max = lo, hi
			first = false
			continue
		}
		for k := 0; k < 3; k++ {
			b.Min[k] = math.Min(b.Min[k], lo[k])
			b.Max[k] = math.Max(b.Max[k], hi[k])
		}
	}
	return b
}

// projection maps world x/y to canvas pixels, y up.
type projection struct {
	scale        float64
	cx, cy       float64
	halfW, halfH float64
}

func newProjection(b Bounds, w, h int, margin float64) projection {
	spanX := b.Max[0] - b.Min[0]
	spanY := b.Max[1] - b.Min[1]
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}
	usable := 1 - 2*margin
	if usable <= 0 {
		usable = 1
	}
	scale := math.Min(float64(w)*usable/spanX, float64(h)*usable/spanY)
	return projection{
		scale: scale,
		cx:    (b.Min[0] + b.Max[0]) / 2,
		cy:    (b.Min[1] + b.Max[1]) / 2,
		halfW: float64(w) / 2,
		halfH: float64(h) / 2,
	}
}

func (p projection) point(x, y float64) (float64, float64) {
	return p.halfW + (x-p.cx)*p.scale, p.halfH - (y-p.cy)*p.scale
}

// RenderFrame draws an orthographic top-down dot plot of f: each element is
// a disc at its x/y position with its color and opacity, drawn back to front
// by z. The returned image is owned by the caller.
func RenderFrame(f *splat.Frame, b Bounds, opts Options) *image.RGBA {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	ss := opts.Supersample
	if ss < 1 {
		ss = 1
	}

	canvasRect := image.Rect(0, 0, opts.Width*ss, opts.Height*ss)
	canvas := system.GetImage(canvasRect)
	defer system.PutImage(canvas)
	draw.Draw(canvas, canvasRect, image.NewUniform(opts.Background), image.Point{}, draw.Src)

	if f != nil && f.Len() > 0 {
		proj := newProjection(b, canvasRect.Dx(), canvasRect.Dy(), opts.Margin)
		radius := opts.PointRadius * float64(ss)
		if radius < 0.5 {
			radius = 0.5
		}
		for _, i := range depthOrder(f.Positions) {
			p := f.Positions[i]
			x, y := proj.point(p[0], p[1])
			drawDisc(canvas, x, y, radius, elementColor(f, i))
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	if ss == 1 {
		draw.Draw(out, out.Rect, canvas, image.Point{}, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(out, out.Rect, canvas, canvasRect, draw.Src, nil)
	}

	if opts.Label && f != nil {
		drawLabel(out, fmt.Sprintf("frame %d  t=%.3fs  n=%d", f.Index, f.T, f.Len()))
		if opts.Stamp != nil {
			drawStamp(out, opts.Stamp)
		}
	}
	return out
}

// depthOrder returns element indices sorted by ascending z, stable.
func depthOrder(pos splat.Column) []int {
	idx := make([]int, len(pos))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return pos[idx[a]][2] < pos[idx[b]][2]
	})
	return idx
}

func elementColor(f *splat.Frame, i int) color.NRGBA {
	c := f.Colors[i]
	return color.NRGBA{
		R: channel(c[0]),
		G: channel(c[1]),
		B: channel(c[2]),
		A: channel(f.Opacities[i][0]),
	}
}

func channel(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

func drawDisc(dst *image.RGBA, x, y, r float64, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	rect := image.Rect(int(math.Floor(x-r)), int(math.Floor(y-r)), int(math.Ceil(x+r))+1, int(math.Ceil(y+r))+1).Intersect(dst.Rect)
	if rect.Empty() {
		return
	}
	draw.DrawMask(dst, rect, image.NewUniform(c), image.Point{}, &disc{x: x, y: y, r: r}, rect.Min, draw.Over)
}

// disc is an alpha mask that is opaque inside a circle.
type disc struct {
	x, y, r float64
}

func (d *disc) ColorModel() color.Model { return color.AlphaModel }

func (d *disc) Bounds() image.Rectangle {
	return image.Rect(int(math.Floor(d.x-d.r)), int(math.Floor(d.y-d.r)), int(math.Ceil(d.x+d.r))+1, int(math.Ceil(d.y+d.r))+1)
}

func (d *disc) At(px, py int) color.Color {
	dx := float64(px) + 0.5 - d.x
	dy := float64(py) + 0.5 - d.y
	if dx*dx+dy*dy <= d.r*d.r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// LabelBounds returns the band RenderFrame writes the label into, or an
// empty rectangle when labels are off.
func LabelBounds(opts Options) image.Rectangle {
	if !opts.Label {
		return image.Rectangle{}
	}
	face := basicfont.Face7x13
	h := 8 + face.Height + face.Descent
	if opts.Stamp != nil {
		h = max(h, opts.Stamp.Rect.Dy()+2*stampInset)
	}
	return image.Rect(0, 0, opts.Width, h)
}

func drawLabel(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colornames.White),
		Face: face,
		Dot:  fixed.P(8, 8+face.Ascent),
	}
	d.DrawString(text)
}
