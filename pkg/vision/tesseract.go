package vision

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine is the on-box fallback used when no vision API key is
// configured. Quality is well below the vision models on crumpled receipts,
// but it keeps the pipeline usable offline.
type TesseractEngine struct {
	// Language passed to tesseract, default "eng".
	Language string
}

// Transcribe runs each chunk through a fresh tesseract client and stitches
// the texts. gosseract clients are not goroutine-safe, so chunks run
// sequentially; local OCR is CPU-bound anyway.
func (t *TesseractEngine) Transcribe(ctx context.Context, chunks [][]byte) (Transcript, error) {
	if len(chunks) == 0 {
		return Transcript{}, ErrNoChunks
	}
	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	start := time.Now()
	texts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Transcript{}, err
		}
		text, err := tesseractChunk(chunk, lang)
		if err != nil {
			return Transcript{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		texts = append(texts, text)
	}
	return Transcript{
		Text:    StitchChunks(texts),
		Model:   "tesseract/" + lang,
		Elapsed: time.Since(start),
		Chunks:  len(chunks),
	}, nil
}

func tesseractChunk(jpeg []byte, lang string) (string, error) {
	f, err := os.CreateTemp("", "chunk-*.jpg")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if _, err := f.Write(jpeg); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(lang)
	if err := client.SetImage(tmp); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
