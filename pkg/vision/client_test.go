package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func fakeVisionServer(t *testing.T, calls *int32, textFor func(n int32) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Errorf("unexpected message shape: %+v", req.Messages)
		}
		if img := req.Messages[0].Content[1].ImageURL; img == nil || !strings.HasPrefix(img.URL, "data:image/jpeg;base64,") {
			t.Error("image content part missing data URI")
		}
		n := atomic.AddInt32(calls, 1)
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": textFor(n)}}},
			"usage":   Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{BaseURL: url, APIKey: "test-key", Model: "test-model", RatePerSec: 1000})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestTranscribeAggregatesUsage(t *testing.T) {
	var calls int32
	srv := fakeVisionServer(t, &calls, func(n int32) string { return fmt.Sprintf("LINE %d", n) })
	defer srv.Close()

	tr, err := testClient(t, srv.URL).Transcribe(context.Background(), [][]byte{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if tr.Chunks != 3 {
		t.Fatalf("chunks=%d want 3", tr.Chunks)
	}
	if tr.Usage.TotalTokens != 360 || tr.Usage.PromptTokens != 300 {
		t.Fatalf("usage not aggregated: %+v", tr.Usage)
	}
	if tr.Model != "test-model" {
		t.Fatalf("model=%q", tr.Model)
	}
	if tr.Elapsed <= 0 {
		t.Fatal("elapsed not recorded")
	}
	// Three chunks, each one line; stitched transcript keeps them in order.
	if len(strings.Split(tr.Text, "\n")) != 3 {
		t.Fatalf("stitched text %q", tr.Text)
	}
}

func TestTranscribeNoChunks(t *testing.T) {
	c := testClient(t, "http://unused.invalid")
	if _, err := c.Transcribe(context.Background(), nil); !errors.Is(err, ErrNoChunks) {
		t.Fatalf("expected ErrNoChunks, got %v", err)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Transcribe(context.Background(), [][]byte{{1}})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestTranscribeContextCancelled(t *testing.T) {
	srv := fakeVisionServer(t, new(int32), func(int32) string { return "x" })
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testClient(t, srv.URL).Transcribe(ctx, [][]byte{{1}}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{APIKey: "k"}); err == nil {
		t.Error("missing base URL accepted")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "http://x"}); err == nil {
		t.Error("missing API key accepted")
	}
}
