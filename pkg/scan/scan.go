// Package scan wires the full receipt path together: border removal,
// normalization into model-sized chunks, and transcription. Both the HTTP
// handlers and the batch processor go through it.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/Psynosaur/read-receipt/pkg/border"
	"github.com/Psynosaur/read-receipt/pkg/normalize"
	"github.com/Psynosaur/read-receipt/pkg/vision"
)

// Config is the end-to-end processing configuration for one receipt.
type Config struct {
	Border   border.Options
	Strategy normalize.Strategy
	// MaxChunkWidth/Height bound what a single model request receives.
	MaxChunkWidth  int
	MaxChunkHeight int
	ChunkOverlap   float64
	// ChunkQuality is the JPEG quality of the chunks sent to the model;
	// independent of the archived processed image quality.
	ChunkQuality int
}

// DefaultConfig returns the defaults used by the server and batch tools.
func DefaultConfig() Config {
	return Config{
		Border:         border.DefaultOptions(),
		Strategy:       normalize.Chunk,
		MaxChunkWidth:  1024,
		MaxChunkHeight: 1536,
		ChunkOverlap:   normalize.DefaultChunkOverlap,
		ChunkQuality:   85,
	}
}

// Outcome bundles everything one processed receipt produced.
type Outcome struct {
	Border     *border.Result
	Transcript vision.Transcript
	// PreprocessTime covers decode through border removal; the OCR time
	// lives in Transcript.Elapsed.
	PreprocessTime time.Duration
}

// ProcessFile runs border removal on path, chunks the crop and transcribes
// it with engine. Either the whole outcome is produced or an error; there
// is no partial result.
func ProcessFile(ctx context.Context, path string, cfg Config, engine vision.Engine) (*Outcome, error) {
	start := time.Now()
	res, err := border.ProcessFile(path, cfg.Border)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", filepath.Base(path), err)
	}
	pre := time.Since(start)

	chunks, err := chunkJPEGs(res.JPEG, cfg)
	if err != nil {
		return nil, err
	}
	tr, err := engine.Transcribe(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", filepath.Base(path), err)
	}
	return &Outcome{Border: res, Transcript: tr, PreprocessTime: pre}, nil
}

// chunkJPEGs decodes the processed crop, slices it per the configured
// strategy and re-encodes each piece.
func chunkJPEGs(processed []byte, cfg Config) ([][]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(processed))
	if err != nil {
		return nil, fmt.Errorf("decode processed image: %w", err)
	}
	var pieces []image.Image
	if cfg.Strategy == normalize.Chunk {
		pieces = normalize.Chunks(img, cfg.MaxChunkWidth, cfg.MaxChunkHeight, cfg.ChunkOverlap)
	} else {
		pieces, err = normalize.Apply(img, cfg.Strategy, cfg.MaxChunkWidth, cfg.MaxChunkHeight)
		if err != nil {
			return nil, err
		}
	}
	out := make([][]byte, 0, len(pieces))
	for i, p := range pieces {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, p, imaging.JPEG, imaging.JPEGQuality(cfg.ChunkQuality)); err != nil {
			return nil, fmt.Errorf("encode chunk %d: %w", i, err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

// SaveProcessed writes the border-removed JPEG next to the original as
// <name>.processed.jpg and returns the path.
func SaveProcessed(originalPath string, processed []byte) (string, error) {
	ext := filepath.Ext(originalPath)
	dest := strings.TrimSuffix(originalPath, ext) + ".processed.jpg"
	if err := os.WriteFile(dest, processed, 0644); err != nil {
		return "", fmt.Errorf("write processed image: %w", err)
	}
	return dest, nil
}

// EngineFromEnv picks the vision client when VISION_API_KEY is configured
// and falls back to local Tesseract otherwise.
func EngineFromEnv() (vision.Engine, error) {
	cfg := vision.ConfigFromEnv()
	if cfg.APIKey == "" {
		return &vision.TesseractEngine{Language: os.Getenv("OCR_LANGUAGE")}, nil
	}
	cl, err := vision.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return cl, nil
}
