package border

import "testing"

func TestRefineBoundsTightensToContent(t *testing.T) {
	// Paper occupying the full frame with a single ink rectangle: the crop
	// must collapse to the ink plus padding, not the whole paper.
	img := solidImage(400, 600, 250, 250, 250)
	fillRect(img, 150, 250, 250, 300, 20, 20, 20)
	r := NewRaster(img)
	rg := LargestComponent(DefaultClassifier().WhiteMask(r))

	box, ok := RefineBounds(r, rg, DefaultContentThreshold, DefaultPadding)
	if !ok {
		t.Fatal("expected bounds")
	}
	// Content-bearing region points are the white pixels bordering the ink,
	// i.e. one pixel outside it, plus 5px padding.
	want := CropBox{Left: 144, Top: 244, Right: 255, Bottom: 305}
	if box != want {
		t.Fatalf("box=%+v want %+v", box, want)
	}
}

func TestRefineBoundsFallsBackToRegionBounds(t *testing.T) {
	// Blank paper: no region point has a dark neighbor, so the raw region
	// bounding box (plus padding clamp) stands.
	img := solidImage(100, 100, 250, 250, 250)
	r := NewRaster(img)
	rg := LargestComponent(DefaultClassifier().WhiteMask(r))

	box, ok := RefineBounds(r, rg, DefaultContentThreshold, DefaultPadding)
	if !ok {
		t.Fatal("expected bounds")
	}
	want := CropBox{Left: 0, Top: 0, Right: 99, Bottom: 99}
	if box != want {
		t.Fatalf("box=%+v want %+v", box, want)
	}
}

func TestRefineBoundsEmptyRegion(t *testing.T) {
	r := NewRaster(solidImage(10, 10, 250, 250, 250))
	if _, ok := RefineBounds(r, Region{}, DefaultContentThreshold, DefaultPadding); ok {
		t.Fatal("empty region must not produce bounds")
	}
}

func TestCropBoxContainment(t *testing.T) {
	// Padding must clamp at the image extents even when content sits at the
	// very edge.
	img := solidImage(60, 60, 250, 250, 250)
	fillRect(img, 0, 0, 10, 10, 20, 20, 20)
	r := NewRaster(img)
	rg := LargestComponent(DefaultClassifier().WhiteMask(r))

	box, ok := RefineBounds(r, rg, DefaultContentThreshold, DefaultPadding)
	if !ok {
		t.Fatal("expected bounds")
	}
	if box.Left < 0 || box.Top < 0 || box.Right >= r.Width() || box.Bottom >= r.Height() {
		t.Fatalf("box %+v escapes image %dx%d", box, r.Width(), r.Height())
	}
	if box.Left > box.Right || box.Top > box.Bottom {
		t.Fatalf("degenerate box %+v", box)
	}
}
