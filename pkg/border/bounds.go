package border

// CropBox is the rectangle retained after border removal, in coordinates of
// the current image generation (post-rotation if a rotation happened).
// Invariant: 0 <= Left <= Right < width and 0 <= Top <= Bottom < height.
type CropBox struct {
	Left, Top, Right, Bottom int
}

func (b CropBox) Width() int  { return b.Right - b.Left + 1 }
func (b CropBox) Height() int { return b.Bottom - b.Top + 1 }

// DefaultPadding guards against clipping antialiased glyph edges.
const DefaultPadding = 5

// RefineBounds tightens the detected paper region down to the sub-box that
// actually carries content, then pads symmetrically.
//
// The raw white-region bounding box usually includes blank paper margins.
// Restricting it to points whose 3x3 neighborhood contains a dark pixel
// (text, logos, barcodes) maximizes border removal; if no point qualifies
// the raw region bounds stand.
func RefineBounds(r *Raster, rg Region, contentThreshold, pad int) (CropBox, bool) {
	minX, minY, maxX, maxY, ok := rg.Bounds()
	if !ok {
		return CropBox{}, false
	}

	cMinX, cMinY := maxX, maxY
	cMaxX, cMaxY := minX, minY
	found := false
	for _, p := range rg.Points {
		if !hasDarkNeighbor(r, p.X, p.Y, contentThreshold) {
			continue
		}
		found = true
		if p.X < cMinX {
			cMinX = p.X
		}
		if p.X > cMaxX {
			cMaxX = p.X
		}
		if p.Y < cMinY {
			cMinY = p.Y
		}
		if p.Y > cMaxY {
			cMaxY = p.Y
		}
	}
	if found {
		minX, minY, maxX, maxY = cMinX, cMinY, cMaxX, cMaxY
	}

	box := CropBox{
		Left:   clampInt(minX-pad, 0, r.Width()-1),
		Top:    clampInt(minY-pad, 0, r.Height()-1),
		Right:  clampInt(maxX+pad, 0, r.Width()-1),
		Bottom: clampInt(maxY+pad, 0, r.Height()-1),
	}
	return box, true
}

// hasDarkNeighbor reports whether any pixel in the 3x3 neighborhood of
// (x, y) is darker than the threshold.
func hasDarkNeighbor(r *Raster, x, y, threshold int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= r.Width() || ny >= r.Height() {
				continue
			}
			if r.BrightnessAt(nx, ny) < threshold {
				return true
			}
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
