package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

type verdict struct {
	Mood string `json:"mood"`
}

func responsesBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"output": []any{map[string]any{
			"type": "message",
			"role": "assistant",
			"content": []any{map[string]any{
				"type": "output_text",
				"text": text,
			}},
		}},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string, retries int) Client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{APIKey: "sk-test", BaseURL: url, MaxRetries: retries, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerateJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text.Format["type"] != "json_schema" || req.Text.Format["name"] != "verdict" {
			t.Errorf("unexpected format %+v", req.Text.Format)
		}
		_, _ = w.Write([]byte(responsesBody(`{"mood":"想念"}`)))
	}))
	defer srv.Close()

	var out verdict
	err := newTestClient(t, srv.URL, 0).GenerateJSON(context.Background(), "sys", "user", "verdict", map[string]any{"type": "object"}, &out)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out.Mood != "想念" {
		t.Fatalf("unexpected mood %q", out.Mood)
	}
}

func TestGenerateJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(responsesBody(`{"mood":"ok"}`)))
	}))
	defer srv.Close()

	var out verdict
	if err := newTestClient(t, srv.URL, 2).GenerateJSON(context.Background(), "s", "u", "verdict", map[string]any{}, &out); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	var out verdict
	err := newTestClient(t, srv.URL, 3).GenerateJSON(context.Background(), "s", "u", "verdict", map[string]any{}, &out)
	var httpErr *openAIHTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("client error retried: %d calls", calls)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
