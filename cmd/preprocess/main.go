package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Psynosaur/read-receipt/pkg/border"
)

// One-shot border removal for a single image. Useful for tuning thresholds
// against a problem receipt without the server or database.
func main() {
	out := flag.String("out", "", "output path (default <input>.processed.jpg)")
	quality := flag.Int("quality", 85, "JPEG quality 1-100")
	sharpen := flag.Bool("sharpen", false, "apply sharpening after crop")
	sharpenStrength := flag.Float64("sharpen-strength", 1.0, "sharpening strength")
	contrast := flag.Bool("contrast", false, "apply contrast adjustment after crop")
	contrastFactor := flag.Float64("contrast-factor", 1.2, "contrast factor")
	threshold := flag.Bool("threshold", false, "binarize after crop")
	thresholdValue := flag.Int("threshold-value", 200, "binarization cutoff 0-255")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: preprocess [flags] <image>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	input := flag.Arg(0)

	opts := border.DefaultOptions()
	opts.JPEGQuality = *quality
	opts.ApplySharpening = *sharpen
	opts.SharpeningStrength = *sharpenStrength
	opts.ApplyContrast = *contrast
	opts.ContrastFactor = *contrastFactor
	opts.ApplyThreshold = *threshold
	opts.ThresholdValue = *thresholdValue

	res, err := border.ProcessFile(input, opts)
	if err != nil {
		log.Fatalf("process %s: %v", input, err)
	}

	dest := *out
	if dest == "" {
		ext := filepath.Ext(input)
		dest = strings.TrimSuffix(input, ext) + ".processed.jpg"
	}
	if err := os.WriteFile(dest, res.JPEG, 0644); err != nil {
		log.Fatalf("write %s: %v", dest, err)
	}

	fmt.Printf("original   %dx%d\n", res.OriginalWidth, res.OriginalHeight)
	if res.Rotation.Accepted {
		fmt.Printf("rotated    %dx%d (%.1f deg, confidence %.3f)\n", res.RotatedWidth, res.RotatedHeight, res.Rotation.Angle, res.Rotation.Confidence)
	} else {
		fmt.Printf("rotation   skipped (%.1f deg, confidence %.3f)\n", res.Rotation.Angle, res.Rotation.Confidence)
	}
	fmt.Printf("crop       %dx%d at (%d,%d)\n", res.CropWidth, res.CropHeight, res.Crop.Left, res.Crop.Top)
	fmt.Printf("retained   %.1f%% (%d white pixels)\n", res.RetainedPercent, res.WhitePixels)
	fmt.Printf("wrote      %s (%d bytes)\n", dest, len(res.JPEG))
}
