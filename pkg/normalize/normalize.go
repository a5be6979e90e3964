// Package normalize prepares cropped receipt images for the vision model:
// every strategy produces one or more images that fit within the model's
// maximum dimensions.
package normalize

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// imageBackground pads letterboxed frames; white matches receipt paper.
var imageBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Strategy selects how an image is fitted to the target size.
type Strategy string

const (
	// Letterbox scales preserving aspect ratio and pads to the exact size.
	Letterbox Strategy = "letterbox"
	// Crop scales preserving aspect ratio and center-crops the overflow.
	Crop Strategy = "crop"
	// Stretch resizes to the exact size ignoring aspect ratio.
	Stretch Strategy = "stretch"
	// Chunk slices tall receipts into overlapping vertical windows that
	// each fit the target size; the overlap lets stitching find the seam.
	Chunk Strategy = "chunk"
)

// DefaultChunkOverlap is the fraction of window height repeated between
// consecutive chunks.
const DefaultChunkOverlap = 0.12

// ParseStrategy validates a strategy name from config or CLI flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Letterbox, Crop, Stretch, Chunk:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown resize strategy %q", s)
}

// Apply fits img to maxW x maxH using the given strategy. Every strategy
// except Chunk returns exactly one image.
func Apply(img image.Image, s Strategy, maxW, maxH int) ([]image.Image, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", maxW, maxH)
	}
	switch s {
	case Letterbox:
		fitted := imaging.Fit(img, maxW, maxH, imaging.Lanczos)
		canvas := imaging.New(maxW, maxH, imageBackground)
		return []image.Image{imaging.PasteCenter(canvas, fitted)}, nil
	case Crop:
		return []image.Image{imaging.Fill(img, maxW, maxH, imaging.Center, imaging.Lanczos)}, nil
	case Stretch:
		return []image.Image{imaging.Resize(img, maxW, maxH, imaging.Lanczos)}, nil
	case Chunk:
		return Chunks(img, maxW, maxH, DefaultChunkOverlap), nil
	}
	return nil, fmt.Errorf("unknown resize strategy %q", s)
}

// Chunks slices img into vertical windows of at most maxH pixels (after
// width scaling to maxW), consecutive windows sharing overlap*maxH rows.
// An image that already fits comes back as a single chunk.
func Chunks(img image.Image, maxW, maxH int, overlap float64) []image.Image {
	b := img.Bounds()
	scaled := img
	if b.Dx() > maxW {
		scaled = imaging.Resize(img, maxW, 0, imaging.Lanczos)
		b = scaled.Bounds()
	}
	if b.Dy() <= maxH {
		return []image.Image{imaging.Clone(scaled)}
	}

	if overlap < 0 {
		overlap = 0
	}
	if overlap > 0.5 {
		overlap = 0.5
	}
	step := maxH - int(float64(maxH)*overlap)
	if step < 1 {
		step = 1
	}

	var out []image.Image
	for top := 0; ; top += step {
		bottom := top + maxH
		if bottom > b.Dy() {
			bottom = b.Dy()
			top = bottom - maxH
			if top < 0 {
				top = 0
			}
		}
		out = append(out, imaging.Crop(scaled, image.Rect(0, top, b.Dx(), bottom)))
		if bottom >= b.Dy() {
			break
		}
	}
	return out
}
