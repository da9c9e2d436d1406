package analyzer

import (
	"image"
	"image/color"
)

// Region is a connected group of lit pixels after dilation.
type Region struct {
	Rect   image.Rectangle
	Pixels int
}

// Report describes what a preview frame shows.
type Report struct {
	Lit      int     // pixels that differ from the background
	Coverage float64 // Lit / analyzed pixels
	Regions  []Region
	Bounds   image.Rectangle // union of the regions
	Blank    bool            // nothing visible
	Clipped  bool            // lit pixels touch the image border
}

// Analyzer finds the visible object in rendered frames. Dots closer than
// Gap pixels are merged into one region.
type Analyzer struct {
	Background color.Color
	Threshold  uint8 // minimum luma difference from the background
	Gap        int
	MinRegion  int             // regions with fewer lit pixels are dropped
	Ignore     image.Rectangle // e.g. the label band
}

func New(background color.Color) *Analyzer {
	return &Analyzer{
		Background: background,
		Threshold:  16,
		Gap:        2,
		MinRegion:  4,
	}
}

func (a *Analyzer) Analyze(img image.Image) Report {
	bounds := img.Bounds()
	lit := a.litMask(img)

	var r Report
	analyzed := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(a.Ignore) {
				continue
			}
			analyzed++
			if lit.GrayAt(x, y).Y == 0 {
				continue
			}
			r.Lit++
			if x == bounds.Min.X || y == bounds.Min.Y || x == bounds.Max.X-1 || y == bounds.Max.Y-1 {
				r.Clipped = true
			}
		}
	}
	if analyzed > 0 {
		r.Coverage = float64(r.Lit) / float64(analyzed)
	}
	r.Blank = r.Lit == 0
	if r.Blank {
		return r
	}

	for _, reg := range findRegions(dilate(lit, a.Gap), lit) {
		if reg.Pixels < a.MinRegion {
			continue
		}
		r.Regions = append(r.Regions, reg)
		r.Bounds = r.Bounds.Union(reg.Rect)
	}
	return r
}

func (a *Analyzer) litMask(img image.Image) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)
	bg := luma(a.Background)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if (image.Point{X: x, Y: y}).In(a.Ignore) {
				continue
			}
			d := int(luma(img.At(x, y))) - int(bg)
			if d < 0 {
				d = -d
			}
			if d >= int(a.Threshold) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

func luma(c color.Color) uint8 {
	if c == nil {
		return 0
	}
	return color.GrayModel.Convert(c).(color.Gray).Y
}

// dilate grows every lit pixel into a square of side 2*radius+1.
func dilate(img *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return img
	}
	bounds := img.Bounds()
	result := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0 {
				continue
			}
			for ky := -radius; ky <= radius; ky++ {
				for kx := -radius; kx <= radius; kx++ {
					p := image.Point{X: x + kx, Y: y + ky}
					if p.In(bounds) {
						result.SetGray(p.X, p.Y, color.Gray{Y: 255})
					}
				}
			}
		}
	}
	return result
}

// findRegions flood-fills the connected components of merged and returns
// their bounding boxes, counting the lit pixels of each.
func findRegions(merged, lit *image.Gray) []Region {
	bounds := merged.Bounds()
	visited := make([]bool, bounds.Dx()*bounds.Dy())
	idx := func(x, y int) int { return (y-bounds.Min.Y)*bounds.Dx() + x - bounds.Min.X }

	var regions []Region
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if merged.GrayAt(x, y).Y == 0 || visited[idx(x, y)] {
				continue
			}
			reg := Region{Rect: image.Rect(x, y, x+1, y+1)}
			stack := []image.Point{{X: x, Y: y}}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !p.In(bounds) || visited[idx(p.X, p.Y)] || merged.GrayAt(p.X, p.Y).Y == 0 {
					continue
				}
				visited[idx(p.X, p.Y)] = true
				reg.Rect = reg.Rect.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				if lit.GrayAt(p.X, p.Y).Y != 0 {
					reg.Pixels++
				}
				stack = append(stack,
					image.Point{X: p.X + 1, Y: p.Y},
					image.Point{X: p.X - 1, Y: p.Y},
					image.Point{X: p.X, Y: p.Y + 1},
					image.Point{X: p.X, Y: p.Y - 1},
				)
			}
			regions = append(regions, reg)
		}
	}
	return regions
}
