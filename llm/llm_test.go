package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fakeChatServer(t *testing.T, statuses []int, content string) (*httptest.Server, *int32, *map[string]any) {
	t.Helper()
	var calls int32
	var lastBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		lastBody = map[string]any{}
		_ = json.Unmarshal(body, &lastBody)

		w.Header().Set("Content-Type", "application/json")
		if int(n) <= len(statuses) && statuses[n-1] != http.StatusOK {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte(`{"error":{"message":"upstream says no","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &lastBody
}

func TestOpenAICompleteSendsDeterministicJSONRequest(t *testing.T) {
	srv, calls, body := fakeChatServer(t, nil, ` {"total_floor_count": 6} `)
	c, err := NewOpenAI(Config{Model: "test-model", BaseURL: srv.URL + "/v1/", APIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := c.Complete(context.Background(), "sys", "user text")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"total_floor_count": 6}` {
		t.Fatalf("unexpected content %q", out)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("expected one call, got %d", *calls)
	}
	got := *body
	if temp, _ := got["temperature"].(float64); temp > 1e-6 {
		t.Fatalf("temperature must be effectively zero, got %v", got["temperature"])
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", got["response_format"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %v", got["messages"])
	}
}

func TestOpenAIEmptyContentIsAnError(t *testing.T) {
	srv, _, _ := fakeChatServer(t, nil, "   ")
	c, _ := NewOpenAI(Config{Model: "m", BaseURL: srv.URL + "/v1"})
	if _, err := c.Complete(context.Background(), "s", "u"); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestRetryRecoversFromServerError(t *testing.T) {
	srv, calls, _ := fakeChatServer(t, []int{http.StatusServiceUnavailable}, `{}`)
	base, _ := NewOpenAI(Config{Model: "m", BaseURL: srv.URL + "/v1"})
	c := WithRetry(base, 3).(*retrying)
	c.initial = time.Millisecond

	out, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "{}" || atomic.LoadInt32(calls) != 2 {
		t.Fatalf("out=%q calls=%d", out, *calls)
	}
}

func TestRetryStopsOnClientError(t *testing.T) {
	srv, calls, _ := fakeChatServer(t, []int{http.StatusBadRequest, http.StatusBadRequest}, `{}`)
	base, _ := NewOpenAI(Config{Model: "m", BaseURL: srv.URL + "/v1"})
	c := WithRetry(base, 3).(*retrying)
	c.initial = time.Millisecond

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("client errors must not be retried, calls=%d", *calls)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	var calls int
	fail := CompleterFunc{Fn: func(context.Context, string, string) (string, error) {
		calls++
		return "", errors.New("connection reset")
	}}
	c := WithRetry(fail, 2).(*retrying)
	c.initial = time.Millisecond
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", calls)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	ok := CompleterFunc{Label: "x", Fn: func(context.Context, string, string) (string, error) { return "{}", nil }}
	c := WithRateLimit(ok, 0.001, 1)
	if _, err := c.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Complete(ctx, "s", "u"); err == nil {
		t.Fatalf("second call should be refused before the deadline")
	}
	if c.Name() != "x" {
		t.Fatalf("name must pass through, got %q", c.Name())
	}
}

func TestNewWithoutProviderIsRuleOnly(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: "none"})
	if err != nil || c != nil {
		t.Fatalf("expected nil completer, got %v %v", c, err)
	}
	if _, err := New(context.Background(), Config{Provider: "bogus"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
