package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "cmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test_model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

type capturedRequest struct {
	Path string
	Auth string
	Body map[string]any
}

func newTestServer(t *testing.T, handler func(n int, w http.ResponseWriter, req capturedRequest)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		raw, _ := io.ReadAll(r.Body)
		req := capturedRequest{Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &req.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		handler(n, w, req)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testClient(baseURL string, providers ...string) *Client {
	return New(Config{
		APIKey:         "test_api_key",
		BaseURL:        baseURL,
		Model:          "vision_model",
		TranslateModel: "translate_model",
		Providers:      providers,
		RetryDelay:     time.Millisecond,
	})
}

func TestNotConfigured(t *testing.T) {
	var nilClient *Client
	if _, err := nilClient.QueryVision(context.Background(), []byte{1}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for nil client, got %v", err)
	}
	if err := nilClient.Ping(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured from Ping, got %v", err)
	}

	c := New(Config{Model: "m"})
	if _, err := c.Translate(context.Background(), "hi", "zh"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured with missing key, got %v", err)
	}

	c = New(Config{APIKey: "k"})
	if _, err := c.QueryVision(context.Background(), []byte{1}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured with missing model, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	var got capturedRequest
	srv, _ := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		got = req
		_, _ = io.WriteString(w, completionBody("你好"))
	})

	out, err := testClient(srv.URL, "ProviderA").Translate(context.Background(), "hello\nworld", "zh")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "你好" {
		t.Fatalf("Translate = %q", out)
	}
	if !strings.HasSuffix(got.Path, "/chat/completions") {
		t.Errorf("unexpected path %q", got.Path)
	}
	if got.Auth != "Bearer test_api_key" {
		t.Errorf("unexpected auth header %q", got.Auth)
	}
	if got.Body["model"] != "translate_model" {
		t.Errorf("unexpected model %v", got.Body["model"])
	}
	msgs, _ := got.Body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if user["content"] != "hello\nworld" {
		t.Errorf("user content should be the whole text as one unit, got %v", user["content"])
	}
	provider, _ := got.Body["provider"].(map[string]any)
	if provider == nil {
		t.Fatal("expected provider preferences in request body")
	}
	if order, _ := provider["order"].([]any); len(order) != 1 || order[0] != "ProviderA" {
		t.Errorf("unexpected provider order %v", provider["order"])
	}
}

func TestTranslateEmptyInputPassedThrough(t *testing.T) {
	var content any = "unset"
	srv, _ := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		msgs, _ := req.Body["messages"].([]any)
		if len(msgs) == 2 {
			content = msgs[1].(map[string]any)["content"]
		}
		_, _ = io.WriteString(w, completionBody(""))
	})

	out, err := testClient(srv.URL).Translate(context.Background(), "", "zh")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "" {
		t.Fatalf("expected service answer passed through, got %q", out)
	}
	if content != "" {
		t.Fatalf("expected empty user content to reach the service, got %v", content)
	}
}

func TestQueryVision(t *testing.T) {
	srv, _ := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		if req.Body["model"] != "vision_model" {
			t.Errorf("unexpected model %v", req.Body["model"])
		}
		_, _ = io.WriteString(w, completionBody("HELLO\nWORLD</image>"))
	})

	text, err := testClient(srv.URL).QueryVision(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("QueryVision failed: %v", err)
	}
	if text != "HELLO\nWORLD" {
		t.Fatalf("QueryVision = %q", text)
	}
}

func TestQueryVisionNoText(t *testing.T) {
	srv, _ := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		_, _ = io.WriteString(w, completionBody("NO_TEXT_FOUND"))
	})

	text, err := testClient(srv.URL).QueryVision(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("expected no error for an image without text, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	srv, calls := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream down"}}`)
			return
		}
		_, _ = io.WriteString(w, completionBody("ok"))
	})

	out, err := testClient(srv.URL).Translate(context.Background(), "x", "en")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNoRetryOnUnauthorized(t *testing.T) {
	srv, calls := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := testClient(srv.URL).Translate(context.Background(), "x", "en")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t, func(n int, w http.ResponseWriter, req capturedRequest) {
		if !strings.HasSuffix(req.Path, "/models") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"vision_model","object":"model","created":1,"owned_by":"test"}]}`)
	})

	if err := testClient(srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&StatusError{StatusCode: 500}, true},
		{&StatusError{StatusCode: 429}, true},
		{&StatusError{StatusCode: 400}, false},
		{&StatusError{StatusCode: 401}, false},
		{context.Canceled, false},
		{errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
