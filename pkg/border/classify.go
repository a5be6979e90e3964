package border

// Default classification thresholds. Kept as settable fields on Classifier
// so they can be tuned per camera/lighting setup.
const (
	DefaultWhiteBrightness  = 120
	DefaultWhiteSpread      = 50
	DefaultContentThreshold = 200
	DefaultUniformTolerance = 15
)

// Classifier holds the per-pixel detection predicates. The predicates are
// pure functions of a pixel value; a Classifier can be shared freely.
type Classifier struct {
	// WhiteBrightness is the minimum brightness for paper-like pixels.
	WhiteBrightness int
	// WhiteSpread is the maximum channel spread for paper-like pixels;
	// saturated colors are never "whitish" however bright.
	WhiteSpread int
	// ContentThreshold is the brightness below which a pixel counts as
	// ink/graphics rather than background.
	ContentThreshold int
	// UniformTolerance is the per-channel tolerance for the uniform-border
	// strategy (compare against a sampled corner color).
	UniformTolerance int
}

// DefaultClassifier returns a classifier with the canonical thresholds.
func DefaultClassifier() Classifier {
	return Classifier{
		WhiteBrightness:  DefaultWhiteBrightness,
		WhiteSpread:      DefaultWhiteSpread,
		ContentThreshold: DefaultContentThreshold,
		UniformTolerance: DefaultUniformTolerance,
	}
}

// IsWhitish reports whether p looks like receipt paper: bright with low
// color variance.
func (c Classifier) IsWhitish(p Pixel) bool {
	return p.Brightness() > c.WhiteBrightness && p.spread() < c.WhiteSpread
}

// IsContent reports whether p is darker than the background threshold,
// i.e. likely text, logo or barcode ink.
func (c Classifier) IsContent(p Pixel) bool {
	return p.Brightness() < c.ContentThreshold
}

// IsBackgroundUniform reports whether p stays within the tolerance of a
// reference color on every channel. Used by the simpler uniform-border
// variant; the rotation-aware pipeline does not need it.
func (c Classifier) IsBackgroundUniform(p, ref Pixel) bool {
	diff := func(a, b uint8) int {
		d := int(a) - int(b)
		if d < 0 {
			d = -d
		}
		return d
	}
	return diff(p.R, ref.R) <= c.UniformTolerance &&
		diff(p.G, ref.G) <= c.UniformTolerance &&
		diff(p.B, ref.B) <= c.UniformTolerance
}

// Mask is a per-pixel boolean classification of one raster snapshot.
// Its dimensions always equal the raster's at creation time; a mask computed
// before a rotation is invalid afterwards and must be rebuilt.
type Mask struct {
	W, H int
	bits []bool
}

// NewMask allocates an all-false mask of the given size.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, bits: make([]bool, w*h)}
}

func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.bits[y*m.W+x]
}

func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	m.bits[y*m.W+x] = v
}

// Count returns the number of set entries.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// WhiteMask classifies every pixel of r with IsWhitish.
func (c Classifier) WhiteMask(r *Raster) *Mask {
	m := NewMask(r.Width(), r.Height())
	for y := 0; y < r.Height(); y++ {
		for x := 0; x < r.Width(); x++ {
			if c.IsWhitish(r.At(x, y)) {
				m.bits[y*m.W+x] = true
			}
		}
	}
	return m
}
