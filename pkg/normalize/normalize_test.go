package normalize

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func testImage(w, h int) image.Image {
	return imaging.New(w, h, color.NRGBA{200, 200, 200, 255})
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"letterbox", "crop", "stretch", "chunk"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Errorf("ParseStrategy(%q): %v", s, err)
		}
	}
	if _, err := ParseStrategy("tile"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestApplySingleImageStrategies(t *testing.T) {
	src := testImage(800, 2000)
	for _, s := range []Strategy{Letterbox, Crop, Stretch} {
		out, err := Apply(src, s, 512, 512)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if len(out) != 1 {
			t.Fatalf("%s: got %d images, want 1", s, len(out))
		}
		b := out[0].Bounds()
		if b.Dx() != 512 || b.Dy() != 512 {
			t.Fatalf("%s: got %dx%d, want 512x512", s, b.Dx(), b.Dy())
		}
	}
}

func TestChunksShortImageSingleChunk(t *testing.T) {
	out := Chunks(testImage(400, 300), 512, 512, DefaultChunkOverlap)
	if len(out) != 1 {
		t.Fatalf("got %d chunks, want 1", len(out))
	}
}

func TestChunksTallReceipt(t *testing.T) {
	out := Chunks(testImage(512, 2000), 512, 512, DefaultChunkOverlap)
	if len(out) < 4 {
		t.Fatalf("got %d chunks for 2000px receipt, want >= 4", len(out))
	}
	for i, c := range out {
		b := c.Bounds()
		if b.Dy() > 512 || b.Dx() != 512 {
			t.Fatalf("chunk %d is %dx%d, exceeds 512 window", i, b.Dx(), b.Dy())
		}
	}
	last := out[len(out)-1].Bounds()
	if last.Dy() != 512 {
		t.Fatalf("final chunk height %d, want full 512 window anchored at the bottom", last.Dy())
	}
}

func TestChunksCoverWholeImage(t *testing.T) {
	const h = 1700
	overlap := DefaultChunkOverlap
	out := Chunks(testImage(512, h), 512, 512, overlap)
	step := 512 - int(512*overlap)
	covered := 0
	for i := range out {
		top := i * step
		if top+512 > h {
			top = h - 512
		}
		if top > covered {
			t.Fatalf("gap before chunk %d: covered to %d, next starts at %d", i, covered, top)
		}
		covered = top + 512
	}
	if covered < h {
		t.Fatalf("chunks cover only %d of %d rows", covered, h)
	}
}

func TestChunksScaleWideImage(t *testing.T) {
	out := Chunks(testImage(1024, 4000), 512, 512, DefaultChunkOverlap)
	for i, c := range out {
		if c.Bounds().Dx() != 512 {
			t.Fatalf("chunk %d width %d, want scaled to 512", i, c.Bounds().Dx())
		}
	}
}
