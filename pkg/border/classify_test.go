package border

import "testing"

func TestPredicatesArePure(t *testing.T) {
	c := DefaultClassifier()
	px := Pixel{R: 180, G: 175, B: 170, A: 255}
	if c.IsWhitish(px) != c.IsWhitish(px) {
		t.Fatal("IsWhitish not deterministic")
	}
	if c.IsContent(px) != c.IsContent(px) {
		t.Fatal("IsContent not deterministic")
	}
}

func TestIsWhitish(t *testing.T) {
	c := DefaultClassifier()
	cases := []struct {
		name string
		px   Pixel
		want bool
	}{
		{"paper white", Pixel{240, 240, 235, 255}, true},
		{"light gray", Pixel{150, 150, 150, 255}, true},
		{"dark background", Pixel{40, 40, 40, 255}, false},
		{"bright saturated red", Pixel{250, 60, 60, 255}, false},
		{"boundary brightness 120", Pixel{120, 120, 120, 255}, false}, // strictly greater required
	}
	for _, tc := range cases {
		if got := c.IsWhitish(tc.px); got != tc.want {
			t.Errorf("%s: IsWhitish=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsContent(t *testing.T) {
	c := DefaultClassifier()
	if !c.IsContent(Pixel{10, 10, 10, 255}) {
		t.Error("ink pixel should be content")
	}
	if c.IsContent(Pixel{230, 230, 230, 255}) {
		t.Error("paper pixel should not be content")
	}
	if c.IsContent(Pixel{200, 200, 200, 255}) {
		t.Error("threshold brightness is background, predicate is strict less-than")
	}
}

func TestIsBackgroundUniform(t *testing.T) {
	c := DefaultClassifier()
	ref := Pixel{100, 110, 120, 255}
	if !c.IsBackgroundUniform(Pixel{110, 100, 130, 255}, ref) {
		t.Error("within tolerance on all channels should match")
	}
	if c.IsBackgroundUniform(Pixel{100, 110, 140, 255}, ref) {
		t.Error("one channel out of tolerance should not match")
	}
}

func TestMaskMatchesImageDimensions(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {33, 7}, {640, 480}} {
		r := NewRaster(solidImage(dims[0], dims[1], 255, 255, 255))
		m := DefaultClassifier().WhiteMask(r)
		if m.W != r.Width() || m.H != r.Height() {
			t.Fatalf("mask %dx%d does not match image %dx%d", m.W, m.H, r.Width(), r.Height())
		}
	}
}

func TestRasterOutOfBoundsSentinel(t *testing.T) {
	r := NewRaster(solidImage(4, 4, 200, 200, 200))
	for _, pt := range []Point{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {-5, -5}, {100, 100}} {
		if got := r.At(pt.X, pt.Y); got != (Pixel{}) {
			t.Errorf("At(%d,%d)=%+v, want zero sentinel", pt.X, pt.Y, got)
		}
		if got := r.BrightnessAt(pt.X, pt.Y); got != 0 {
			t.Errorf("BrightnessAt(%d,%d)=%d, want 0", pt.X, pt.Y, got)
		}
	}
}

func TestBrightnessIsPlainAverage(t *testing.T) {
	p := Pixel{R: 30, G: 60, B: 90, A: 255}
	if got := p.Brightness(); got != 60 {
		t.Fatalf("brightness=%d want 60", got)
	}
}
