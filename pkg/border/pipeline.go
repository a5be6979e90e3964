package border

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Options is the configuration surface of the pipeline entry point. All
// numeric fields are validated before any image work begins.
type Options struct {
	JPEGQuality        int // 1-100
	ApplySharpening    bool
	SharpeningStrength float64 // 0.1-3.0
	ApplyContrast      bool
	ContrastFactor     float64 // 0.1-5.0
	ApplyThreshold     bool
	ThresholdValue     int // 0-255
}

// DefaultOptions returns the defaults: quality 85, no post-filters.
func DefaultOptions() Options {
	return Options{JPEGQuality: 85, SharpeningStrength: 1.0, ContrastFactor: 1.2, ThresholdValue: 200}
}

func (o Options) validate() error {
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d not in 1..100", ErrBadOption, o.JPEGQuality)
	}
	if o.ApplySharpening && (o.SharpeningStrength < 0.1 || o.SharpeningStrength > 3.0) {
		return fmt.Errorf("%w: sharpening strength %.2f not in 0.1..3.0", ErrBadOption, o.SharpeningStrength)
	}
	if o.ApplyContrast && (o.ContrastFactor < 0.1 || o.ContrastFactor > 5.0) {
		return fmt.Errorf("%w: contrast factor %.2f not in 0.1..5.0", ErrBadOption, o.ContrastFactor)
	}
	if o.ApplyThreshold && (o.ThresholdValue < 0 || o.ThresholdValue > 255) {
		return fmt.Errorf("%w: threshold %d not in 0..255", ErrBadOption, o.ThresholdValue)
	}
	return nil
}

// Result is the structured record handed back to the orchestration layer.
// It feeds logging and metrics only; nothing in the pipeline reads it back.
type Result struct {
	OriginalWidth  int
	OriginalHeight int
	// Rotated dimensions equal the original ones when no rotation was applied.
	RotatedWidth  int
	RotatedHeight int
	Crop          CropBox
	CropWidth     int
	CropHeight    int
	Rotation      Estimate
	WhitePixels   int
	// RetainedPercent is crop area over current (post-rotation) image area.
	RetainedPercent float64
	// JPEG is the encoded output. Either a fully processed crop is produced
	// or the pipeline errors; there is no partial output.
	JPEG []byte
}

// Pipeline runs border removal over a single image, strictly sequentially.
// A Pipeline carries no per-image state, so one instance may be reused, and
// separate invocations can run concurrently in independent goroutines.
type Pipeline struct {
	Classifier Classifier
	Estimator  Estimator
	Padding    int
}

// NewPipeline returns a pipeline with canonical thresholds.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Classifier: DefaultClassifier(),
		Estimator:  DefaultEstimator(),
		Padding:    DefaultPadding,
	}
}

// ProcessFile decodes path and runs Process on it.
func ProcessFile(path string, opts Options) (*Result, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidInput, path, err)
	}
	return Process(img, opts)
}

// Process runs a fresh default pipeline over img.
func Process(img image.Image, opts Options) (*Result, error) {
	return NewPipeline().Process(img, opts)
}

// Process runs classify -> find region -> estimate rotation -> (rotate and
// re-segment) -> refine bounds -> crop -> optional sharpen/contrast/threshold
// -> encode. Every stage reads dimensions from the current image generation;
// a mask or region computed before a rotation is never reused after it.
func (p *Pipeline) Process(img image.Image, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: zero-dimension image %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}

	res := &Result{OriginalWidth: b.Dx(), OriginalHeight: b.Dy()}

	raster := NewRaster(img)
	mask := p.Classifier.WhiteMask(raster)
	res.WhitePixels = mask.Count()
	region := LargestComponent(mask)
	if region.Size() == 0 {
		return nil, ErrNoContent
	}

	res.Rotation = p.Estimator.Estimate(raster, region)
	if res.Rotation.Accepted {
		// Rotation expands the canvas to fit; fill with dark background so
		// re-segmentation does not absorb the new corners into the paper
		// region. Everything below this point is in rotated coordinates.
		rotated := imaging.Rotate(raster.NRGBA(), res.Rotation.Angle, color.NRGBA{A: 255})
		raster = NewRaster(rotated)
		mask = p.Classifier.WhiteMask(raster)
		res.WhitePixels = mask.Count()
		region = LargestComponent(mask)
		if region.Size() == 0 {
			return nil, ErrNoContent
		}
	}
	res.RotatedWidth = raster.Width()
	res.RotatedHeight = raster.Height()

	box, ok := RefineBounds(raster, region, p.Classifier.ContentThreshold, p.Padding)
	if !ok {
		return nil, ErrNoContent
	}
	res.Crop = box
	res.CropWidth = box.Width()
	res.CropHeight = box.Height()
	res.RetainedPercent = 100 * float64(box.Width()*box.Height()) /
		float64(raster.Width()*raster.Height())

	cropped := imaging.Crop(raster.NRGBA(), image.Rect(box.Left, box.Top, box.Right+1, box.Bottom+1))

	// Fixed filter order: sharpen, then contrast, then threshold.
	if opts.ApplySharpening {
		sharpen(cropped, opts.SharpeningStrength)
	}
	if opts.ApplyContrast {
		adjustContrast(cropped, opts.ContrastFactor)
	}
	if opts.ApplyThreshold {
		threshold(cropped, opts.ThresholdValue)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	res.JPEG = buf.Bytes()
	return res, nil
}
