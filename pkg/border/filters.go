package border

import "image"

// sharpen applies an unsharp mask: a 3x3 Laplacian kernel convolved per
// channel against a snapshot of the pre-filter pixels, blended back by
// strength. Reading from a snapshot and writing to the live buffer avoids
// read-after-write hazards inside the convolution; contrast and threshold
// are pixel-independent and safe in place, convolution is not.
// The 1px border is left untouched (the kernel needs a full neighborhood).
func sharpen(img *image.NRGBA, strength float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return
	}
	snap := make([]uint8, len(img.Pix))
	copy(snap, img.Pix)

	// [[0,-1,0],[-1,5,-1],[0,-1,0]]
	at := func(x, y, c int) float64 {
		return float64(snap[y*img.Stride+x*4+c])
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			for c := 0; c < 3; c++ {
				orig := at(x, y, c)
				conv := 5*orig - at(x, y-1, c) - at(x-1, y, c) - at(x+1, y, c) - at(x, y+1, c)
				out := orig + (conv-orig)*strength
				img.Pix[y*img.Stride+x*4+c] = clampByte(out)
			}
		}
	}
}

// adjustContrast stretches every channel around the midpoint:
// out = (in-128)*factor + 128. Alpha is untouched.
func adjustContrast(img *image.NRGBA, factor float64) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			for c := 0; c < 3; c++ {
				v := float64(row[x*4+c])
				row[x*4+c] = clampByte((v-128)*factor + 128)
			}
		}
	}
}

// threshold binarizes on brightness: at or above the cut every channel goes
// to 255, below to 0. Alpha is preserved. Destructive, so it always runs
// last in the filter chain.
func threshold(img *image.NRGBA, cut int) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			s := row[x*4 : x*4+3]
			bri := (int(s[0]) + int(s[1]) + int(s[2])) / 3
			var v uint8
			if bri >= cut {
				v = 255
			}
			s[0], s[1], s[2] = v, v, v
		}
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
