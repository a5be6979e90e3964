// Package vision turns receipt image chunks into a stitched transcript.
// The primary engine talks to an external vision-language model over HTTP;
// a Tesseract engine serves as the on-box fallback when no API key is
// configured.
package vision

import (
	"context"
	"errors"
	"time"
)

// Usage is the token accounting reported by the model for a transcription.
// Aggregated per transcript, returned to the caller instead of being
// accumulated in package state.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *Usage) add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// Transcript is the stitched text of one receipt plus its cost and timing.
type Transcript struct {
	Text    string
	Model   string
	Usage   Usage
	Elapsed time.Duration
	// Chunks is the number of image pieces that were transcribed.
	Chunks int
}

// Engine transcribes a receipt presented as JPEG-encoded chunks, ordered
// top to bottom. Implementations must be safe for concurrent use.
type Engine interface {
	Transcribe(ctx context.Context, chunks [][]byte) (Transcript, error)
}

// ErrNoChunks is returned when a transcription is requested with no input.
var ErrNoChunks = errors.New("no image chunks to transcribe")
