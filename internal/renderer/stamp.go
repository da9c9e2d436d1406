package renderer

import (
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
)

// stampInset is the gap between the stamp and the top right corner.
const stampInset = 4

// NewStamp encodes content as a QR code, module pixels per module, with the
// quiet zone kept.
func NewStamp(content string, module int) (*image.RGBA, error) {
	if module < 1 {
		module = 1
	}
	q, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("stamp %q: %w", content, err)
	}
	bits := q.Bitmap()
	size := len(bits) * module

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Rect, image.NewUniform(colornames.White), image.Point{}, draw.Src)
	dark := image.NewUniform(colornames.Black)
	for y, row := range bits {
		for x, on := range row {
			if on {
				r := image.Rect(x*module, y*module, (x+1)*module, (y+1)*module)
				draw.Draw(img, r, dark, image.Point{}, draw.Src)
			}
		}
	}
	return img, nil
}

func drawStamp(dst *image.RGBA, stamp *image.RGBA) {
	w := stamp.Rect.Dx()
	r := image.Rect(dst.Rect.Max.X-w-stampInset, stampInset, dst.Rect.Max.X-stampInset, stampInset+stamp.Rect.Dy())
	draw.Draw(dst, r.Intersect(dst.Rect), stamp, stamp.Rect.Min, draw.Src)
}
