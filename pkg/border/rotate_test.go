package border

import (
	"math"
	"testing"
)

func TestCorrectiveNearWrapBoundary(t *testing.T) {
	e := DefaultEstimator()
	// A dominant angle of 178 degrees is a nearly horizontal line and needs
	// a +2 correction, not a -88 degree spin.
	got, ok := e.corrective(178)
	if !ok {
		t.Fatal("178 degrees rejected")
	}
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("corrective(178)=%v want +2", got)
	}
}

func TestCorrectiveSmallAngles(t *testing.T) {
	e := DefaultEstimator()
	for _, tc := range []struct{ dominant, want float64 }{
		{3, -3},
		{0, 0},
		{177, 3},
		{90, 0},
		{88, 2},
		{92, -2},
		{120, -30},
		{45, -45},
		{135, -45},
		{150, 30},
		{160, 20},
	} {
		got, ok := e.corrective(tc.dominant)
		if !ok {
			t.Fatalf("corrective(%v) rejected", tc.dominant)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("corrective(%v)=%v want %v", tc.dominant, got, tc.want)
		}
	}
}

func TestCorrectiveAlwaysBounded(t *testing.T) {
	e := DefaultEstimator()
	for d := 0.0; d < 180; d += 0.25 {
		got, ok := e.corrective(d)
		if !ok {
			continue
		}
		if got < -45-1e-9 || got > 45+1e-9 {
			t.Fatalf("corrective(%v)=%v outside [-45,45]", d, got)
		}
	}
}

func TestEstimateAngleRangeInvariant(t *testing.T) {
	// Horizontal dark stripes on paper: strong, consistent gradients.
	img := solidImage(400, 400, 250, 250, 250)
	for y := 40; y < 360; y += 20 {
		fillRect(img, 20, y, 380, y+4, 10, 10, 10)
	}
	r := NewRaster(img)
	m := DefaultClassifier().WhiteMask(r)
	rg := LargestComponent(m)
	est := DefaultEstimator().Estimate(r, rg)
	if est.Confidence == 0 {
		if est.Angle != 0 {
			t.Fatalf("rejected estimate must carry angle 0, got %v", est.Angle)
		}
		return
	}
	if est.Angle < -45 || est.Angle > 45 {
		t.Fatalf("angle %v outside [-45,45]", est.Angle)
	}
}

func TestEstimateHorizontalStripesNeedNoRotation(t *testing.T) {
	img := solidImage(400, 400, 250, 250, 250)
	for y := 40; y < 360; y += 20 {
		fillRect(img, 20, y, 380, y+4, 10, 10, 10)
	}
	r := NewRaster(img)
	rg := LargestComponent(DefaultClassifier().WhiteMask(r))
	est := DefaultEstimator().Estimate(r, rg)
	// Horizontal edges have vertical gradients (dominant orientation ~90),
	// which converts to a ~0 corrective angle; the acceptance policy must
	// not ask for a rotation.
	if est.Accepted {
		t.Fatalf("straight stripes produced accepted rotation of %v degrees", est.Angle)
	}
}

func TestEstimateInsufficientEdges(t *testing.T) {
	// Featureless paper: no gradient clears the noise floor.
	r := NewRaster(solidImage(300, 300, 245, 245, 245))
	rg := LargestComponent(DefaultClassifier().WhiteMask(r))
	est := DefaultEstimator().Estimate(r, rg)
	if est.Confidence != 0 || est.Angle != 0 || est.Accepted {
		t.Fatalf("expected zero estimate for featureless image, got %+v", est)
	}
}

func TestEstimateEmptyRegion(t *testing.T) {
	r := NewRaster(solidImage(50, 50, 245, 245, 245))
	est := DefaultEstimator().Estimate(r, Region{})
	if est.Confidence != 0 || est.Angle != 0 || est.Accepted {
		t.Fatalf("expected zero estimate for empty region, got %+v", est)
	}
}

func TestSobelGradientDirection(t *testing.T) {
	// Left half dark, right half bright: positive horizontal gradient at the
	// seam, no vertical component.
	img := solidImage(20, 20, 10, 10, 10)
	fillRect(img, 10, 0, 20, 20, 250, 250, 250)
	r := NewRaster(img)
	gx, gy := sobelAt(r, 10, 10)
	if gx <= 0 {
		t.Fatalf("gx=%v want positive across dark-to-bright seam", gx)
	}
	if gy != 0 {
		t.Fatalf("gy=%v want 0 on purely vertical seam", gy)
	}
}
