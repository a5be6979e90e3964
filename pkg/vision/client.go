package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultPrompt asks for a literal transcription; parsing happens elsewhere.
const DefaultPrompt = "Transcribe every line of this receipt image exactly as printed, top to bottom. Output plain text only, one receipt line per text line. Do not summarize or translate."

// ClientConfig configures the vision-language model client. Zero fields
// fall back to the VISION_* environment variables and library defaults.
type ClientConfig struct {
	BaseURL     string // chat-completions endpoint, e.g. https://api.example.com/v1/chat/completions
	APIKey      string
	Model       string
	Prompt      string
	MaxParallel int     // concurrent chunk requests, default 4
	RatePerSec  float64 // request rate limit, default 2
	Timeout     time.Duration
}

// ConfigFromEnv reads VISION_API_URL, VISION_API_KEY, VISION_MODEL and
// VISION_PROMPT.
func ConfigFromEnv() ClientConfig {
	return ClientConfig{
		BaseURL: os.Getenv("VISION_API_URL"),
		APIKey:  os.Getenv("VISION_API_KEY"),
		Model:   os.Getenv("VISION_MODEL"),
		Prompt:  os.Getenv("VISION_PROMPT"),
	}
}

// Client sends image chunks to an OpenAI-compatible chat-completions vision
// endpoint and stitches the per-chunk texts. Safe for concurrent use.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("vision: base URL required (set VISION_API_URL)")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision: API key required (set VISION_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.MaxParallel),
	}, nil
}

// chat-completions wire types, the subset we use.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Transcribe sends every chunk to the model with bounded concurrency,
// stitches the texts in chunk order and aggregates usage.
func (c *Client) Transcribe(ctx context.Context, chunks [][]byte) (Transcript, error) {
	if len(chunks) == 0 {
		return Transcript{}, ErrNoChunks
	}
	start := time.Now()
	texts := make([]string, len(chunks))
	usages := make([]Usage, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxParallel)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			text, usage, err := c.transcribeChunk(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			texts[i] = text
			usages[i] = usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Transcript{}, err
	}

	t := Transcript{
		Text:    StitchChunks(texts),
		Model:   c.cfg.Model,
		Elapsed: time.Since(start),
		Chunks:  len(chunks),
	}
	for _, u := range usages {
		t.Usage.add(u)
	}
	return t, nil
}

func (c *Client) transcribeChunk(ctx context.Context, jpeg []byte) (string, Usage, error) {
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: c.cfg.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(b))
	if err != nil {
		return "", Usage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", Usage{}, fmt.Errorf("vision api status %d: %s", resp.StatusCode, string(slurp))
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("vision api returned no choices")
	}
	return parsed.Choices[0].Message.Content, parsed.Usage, nil
}
