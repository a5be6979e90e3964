package border

import (
	"math"
)

// Estimate is the outcome of one rotation-detection pass. Angle and
// Confidence are reported together even when the estimate is rejected so
// callers can log what was seen.
type Estimate struct {
	// Angle is the corrective rotation in degrees, always in [-45, 45].
	Angle float64
	// Confidence is the dominant orientation's share of the total gradient
	// weight, in [0, 1]. Zero means no usable estimate.
	Confidence float64
	// Accepted reports whether the caller-side policy (MinConfidence and
	// MinAngle) passed and the image should actually be rotated.
	Accepted bool
}

// Estimator derives the dominant text-line orientation of a detected region
// from Sobel gradients and converts it into a corrective rotation.
// The zero value is unusable; construct with DefaultEstimator. The reference
// behaviour fixes all of these numbers; they are fields rather than literals
// because whether they should scale with resolution is still unresolved.
type Estimator struct {
	// NoiseFloor discards gradients with magnitude at or below this value.
	NoiseFloor float64
	// BinWidth is the orientation histogram bucket width in degrees.
	BinWidth float64
	// MinGradients is the minimum number of qualifying gradients; below it
	// the estimate is "insufficient edges" (confidence zero).
	MinGradients int
	// RejectAbove rejects corrective angles whose magnitude exceeds this
	// value after folding; such values indicate misdetection, not a real
	// tilted receipt.
	RejectAbove float64
	// MinConfidence and MinAngle form the acceptance policy. Both are
	// deliberately permissive: skipping a needed small rotation reads
	// better than over-rotating a legible receipt.
	MinConfidence float64
	MinAngle      float64
}

// DefaultEstimator returns an estimator with the canonical constants.
func DefaultEstimator() Estimator {
	return Estimator{
		NoiseFloor:    10,
		BinWidth:      2,
		MinGradients:  10,
		RejectAbove:   75,
		MinConfidence: 0.02,
		MinAngle:      2,
	}
}

// Estimate computes the corrective rotation for the given region of r.
func (e Estimator) Estimate(r *Raster, rg Region) Estimate {
	n := rg.Size()
	if n == 0 {
		return Estimate{}
	}

	// Subsample the region so cost stays bounded on big receipts.
	stride := int(math.Sqrt(float64(n)) / 50)
	if stride < 1 {
		stride = 1
	}

	nbuckets := int(math.Ceil(180 / e.BinWidth))
	weights := make([]float64, nbuckets)
	total := 0.0
	qualifying := 0

	for i := 0; i < n; i += stride {
		p := rg.Points[i]
		// Sobel needs a full 3x3 neighborhood of real pixels.
		if p.X < 2 || p.Y < 2 || p.X >= r.Width()-2 || p.Y >= r.Height()-2 {
			continue
		}
		gx, gy := sobelAt(r, p.X, p.Y)
		mag := math.Hypot(gx, gy)
		if mag <= e.NoiseFloor {
			continue
		}
		qualifying++

		// Orientation, not direction: a line and its reverse are the same.
		ang := math.Atan2(gy, gx) * 180 / math.Pi
		for ang < 0 {
			ang += 180
		}
		for ang >= 180 {
			ang -= 180
		}
		b := int(ang / e.BinWidth)
		if b >= nbuckets {
			b = nbuckets - 1
		}
		weights[b] += mag
		total += mag
	}

	if qualifying < e.MinGradients || total == 0 {
		return Estimate{}
	}

	bestBucket := 0
	for i, w := range weights {
		if w > weights[bestBucket] {
			bestBucket = i
		}
	}
	dominant := (float64(bestBucket) + 0.5) * e.BinWidth
	confidence := weights[bestBucket] / total

	angle, ok := e.corrective(dominant)
	if !ok {
		return Estimate{}
	}
	est := Estimate{Angle: angle, Confidence: confidence}
	est.Accepted = confidence >= e.MinConfidence && math.Abs(angle) >= e.MinAngle
	return est
}

// corrective converts a dominant orientation in [0, 180) into a corrective
// rotation in [-45, 45]. Orientations near the 0/180 wrap are nearly
// horizontal already and need the small correction, not a near-90 one; a
// naive -angle here once turned 178-degree text into a -88 degree spin.
func (e Estimator) corrective(dominant float64) (float64, bool) {
	rot := -dominant
	if dominant > 170 {
		rot = -(dominant - 180)
	}
	// Fold until the angle lands in [-45, 45]: a text orientation is
	// indistinguishable from itself rotated by a quarter turn, and a single
	// fold leaves midrange orientations (around 150) outside the range.
	for rot < -45 {
		rot += 90
	}
	for rot > 45 {
		rot -= 90
	}
	if math.Abs(rot) > e.RejectAbove {
		return 0, false
	}
	return rot, true
}

// sobelAt computes the 3x3 Sobel gradient pair on brightness at (x, y).
func sobelAt(r *Raster, x, y int) (gx, gy float64) {
	tl := float64(r.BrightnessAt(x-1, y-1))
	tc := float64(r.BrightnessAt(x, y-1))
	tr := float64(r.BrightnessAt(x+1, y-1))
	ml := float64(r.BrightnessAt(x-1, y))
	mr := float64(r.BrightnessAt(x+1, y))
	bl := float64(r.BrightnessAt(x-1, y+1))
	bc := float64(r.BrightnessAt(x, y+1))
	br := float64(r.BrightnessAt(x+1, y+1))

	gx = (tr + 2*mr + br) - (tl + 2*ml + bl)
	gy = (bl + 2*bc + br) - (tl + 2*tc + tr)
	return gx, gy
}
