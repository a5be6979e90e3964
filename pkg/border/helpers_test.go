package border

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// solidImage builds a WxH NRGBA filled with one color.
func solidImage(w, h int, r, g, b uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{r, g, b, 255}), image.Point{}, draw.Src)
	return img
}

// fillRect paints a rectangle [x0,y0)..(x1,y1) in place.
func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, r, g, b uint8) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), image.NewUniform(color.NRGBA{r, g, b, 255}), image.Point{}, draw.Src)
}

// receiptPhoto builds the synthetic test scene: a dark margin of the given
// width around a white block, with an optional dark content rectangle.
func receiptPhoto(w, h, margin int, withContent bool) *image.NRGBA {
	img := solidImage(w, h, 10, 10, 10)
	fillRect(img, margin, margin, w-margin, h-margin, 250, 250, 250)
	if withContent {
		cw, ch := 100, 50
		cx, cy := w/2-cw/2, h/2-ch/2
		fillRect(img, cx, cy, cx+cw, cy+ch, 20, 20, 20)
	}
	return img
}

// tiltedReceiptPhoto draws text-line stripes on the white block and rotates
// the whole photo by angle degrees, filling the expanded canvas with the dark
// background. Stripes keep white side margins so the paper region stays one
// connected component.
func tiltedReceiptPhoto(w, h, margin int, angle float64) *image.NRGBA {
	img := solidImage(w, h, 10, 10, 10)
	fillRect(img, margin, margin, w-margin, h-margin, 250, 250, 250)
	for y := margin + 40; y < h-margin-40; y += 24 {
		fillRect(img, margin+30, y, w-margin-30, y+5, 20, 20, 20)
	}
	return imaging.Rotate(img, angle, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
}
