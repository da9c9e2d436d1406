package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("Missing headers: %v", r.Header)
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		if req.System != "sys" || len(req.Messages) != 1 || req.MaxTokens != 100 {
			t.Errorf("Unexpected request: %+v", req)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],
			"model":"m","stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("key", "").WithURL(srv.URL)
	resp, err := c.Complete(context.Background(), "sys", []Message{User("hi")}, &RequestOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "hello world" || resp.InputTokens != 3 || resp.OutputTokens != 2 {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.WasTruncated() {
		t.Error("end_turn reported as truncated")
	}
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("key", "").WithURL(srv.URL).Complete(context.Background(), "", []Message{User("hi")}, nil)
	if err == nil {
		t.Fatal("Expected an error")
	}
	t.Logf("error: %v", err)
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("System prompt not first: %+v", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("Temperature not forwarded: %v", req.Temperature)
		}
		w.Write([]byte(`{"model":"local","choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"length"}],
			"usage":{"prompt_tokens":5,"completion_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("", "local", srv.URL+"/v1/")
	resp, err := c.Complete(context.Background(), "sys", []Message{User("hi")}, &RequestOptions{Temperature: 0.7})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "ok" || !resp.WasTruncated() {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestCompleteWithRetry(t *testing.T) {
	backoffUnit = time.Millisecond
	defer func() { backoffUnit = time.Second }()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"third time"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", "", srv.URL)
	resp, err := c.CompleteWithRetry(context.Background(), "", []Message{User("hi")}, 3, nil)
	if err != nil {
		t.Fatalf("CompleteWithRetry failed: %v", err)
	}
	if resp.Content != "third time" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("content=%q calls=%d", resp.Content, calls)
	}

	atomic.StoreInt32(&calls, -10)
	if _, err := c.CompleteWithRetry(context.Background(), "", []Message{User("hi")}, 2, nil); err == nil {
		t.Error("Expected failure after retries")
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted("a", "b")
	for _, want := range []string{"a", "b"} {
		resp, err := s.Complete(context.Background(), "sys", []Message{User("q")}, nil)
		if err != nil || resp.Content != want {
			t.Fatalf("Complete = %v, %v; want %q", resp, err, want)
		}
	}
	if _, err := s.Complete(context.Background(), "", nil, nil); !errors.Is(err, ErrScriptExhausted) {
		t.Errorf("Expected ErrScriptExhausted, got %v", err)
	}
	if len(s.Calls) != 3 {
		t.Errorf("Recorded %d calls", len(s.Calls))
	}
}

func TestNew(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := New("anthropic", "", "", ""); err == nil {
		t.Error("Expected missing key error")
	}
	if _, err := New("local", "", "llama3", ""); err != nil {
		t.Errorf("Local provider failed: %v", err)
	}
	if _, err := New("mystery", "", "", ""); err == nil {
		t.Error("Expected unknown provider error")
	}
}
