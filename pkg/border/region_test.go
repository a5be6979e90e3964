package border

import "testing"

func TestLargestComponentPicksBiggest(t *testing.T) {
	m := NewMask(100, 100)
	// Small blob, 10x10 at origin.
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			m.Set(x, y, true)
		}
	}
	// Big blob, 40x40, separated by a clear gap.
	for y := 50; y < 90; y++ {
		for x := 50; x < 90; x++ {
			m.Set(x, y, true)
		}
	}
	rg := LargestComponent(m)
	if rg.Size() != 40*40 {
		t.Fatalf("largest component size=%d want %d", rg.Size(), 40*40)
	}
	minX, minY, maxX, maxY, ok := rg.Bounds()
	if !ok {
		t.Fatal("expected bounds")
	}
	if minX != 50 || minY != 50 || maxX != 89 || maxY != 89 {
		t.Fatalf("bounds=(%d,%d)-(%d,%d)", minX, minY, maxX, maxY)
	}
}

func TestLargestComponentEmptyMask(t *testing.T) {
	rg := LargestComponent(NewMask(64, 64))
	if rg.Size() != 0 {
		t.Fatalf("empty mask produced region of %d points", rg.Size())
	}
	if _, _, _, _, ok := rg.Bounds(); ok {
		t.Fatal("empty region must not report bounds")
	}
}

func TestFloodFillEightConnectivity(t *testing.T) {
	// Two 6x6 squares touching only at one diagonal corner. 8-connectivity
	// must merge them into a single component.
	m := NewMask(40, 40)
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			m.Set(x, y, true)
			m.Set(x+6, y+6, true)
		}
	}
	rg := LargestComponent(m)
	if rg.Size() != 72 {
		t.Fatalf("diagonal squares not merged: size=%d want 72", rg.Size())
	}
}

func TestLargestComponentCoversFullRegionDespiteStride(t *testing.T) {
	// Region thinner than the seed stride in one axis but long in the other:
	// a 3px-wide vertical bar. Seeds land every 5th column, so column 0-2
	// might miss, but a bar at x=10..12 gets seeded at x=10.
	m := NewMask(50, 50)
	for y := 0; y < 50; y++ {
		for x := 10; x < 13; x++ {
			m.Set(x, y, true)
		}
	}
	rg := LargestComponent(m)
	if rg.Size() != 150 {
		t.Fatalf("size=%d want 150", rg.Size())
	}
}
