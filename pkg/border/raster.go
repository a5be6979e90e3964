package border

import (
	"image"

	"github.com/disintegration/imaging"
)

// Pixel is an 8-bit RGBA sample.
type Pixel struct {
	R, G, B, A uint8
}

// Brightness returns the plain channel average (R+G+B)/3. All classifiers in
// this package use this value, not a luminance-weighted one.
func (p Pixel) Brightness() int {
	return (int(p.R) + int(p.G) + int(p.B)) / 3
}

// spread is the difference between the strongest and weakest channel,
// a cheap proxy for color saturation.
func (p Pixel) spread() int {
	mx := int(p.R)
	mn := int(p.R)
	for _, v := range []int{int(p.G), int(p.B)} {
		if v > mx {
			mx = v
		}
		if v < mn {
			mn = v
		}
	}
	return mx - mn
}

// Raster wraps a decoded image behind a bounds-checked, 0-based accessor.
// Out-of-range reads return a transparent black sentinel instead of failing;
// kernel code near mask edges relies on that.
type Raster struct {
	img *image.NRGBA
	w   int
	h   int
}

// NewRaster copies img into an NRGBA buffer owned by the raster.
func NewRaster(img image.Image) *Raster {
	n := imaging.Clone(img)
	b := n.Bounds()
	return &Raster{img: n, w: b.Dx(), h: b.Dy()}
}

func (r *Raster) Width() int  { return r.w }
func (r *Raster) Height() int { return r.h }

// NRGBA exposes the backing image for encode/rotate/crop operations.
func (r *Raster) NRGBA() *image.NRGBA { return r.img }

// At samples the pixel at (x, y). Coordinates outside the raster yield the
// zero Pixel.
func (r *Raster) At(x, y int) Pixel {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return Pixel{}
	}
	i := r.img.PixOffset(x, y)
	s := r.img.Pix[i : i+4 : i+4]
	return Pixel{R: s[0], G: s[1], B: s[2], A: s[3]}
}

// BrightnessAt is At(x, y).Brightness() without the struct copy in hot loops.
func (r *Raster) BrightnessAt(x, y int) int {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return 0
	}
	i := r.img.PixOffset(x, y)
	s := r.img.Pix[i : i+4 : i+4]
	return (int(s[0]) + int(s[1]) + int(s[2])) / 3
}
