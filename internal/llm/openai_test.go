package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeCompletionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClientForServer(t *testing.T, srv *httptest.Server) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	return client
}

func completionBody(content string) string {
	return `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` + mustJSON(content) + `}}]}`
}

func mustJSON(v string) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestNewOpenAIClientRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCompleteReturnsTrimmedContent(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := newFakeCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("  SELECT 1  ")))
	})

	client := newClientForServer(t, srv)
	got, err := client.Complete(context.Background(), Request{
		SystemPrompt: "system",
		UserPrompt:   "user",
		Temperature:  0.3,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "SELECT 1" {
		t.Fatalf("Complete() = %q", got)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", gotBody["model"])
	}
	messages, ok := gotBody["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v", gotBody["messages"])
	}
}

func TestCompleteUsesRequestModelOverride(t *testing.T) {
	var gotBody map[string]any
	srv := newFakeCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("ok")))
	})

	client := newClientForServer(t, srv)
	if _, err := client.Complete(context.Background(), Request{Model: "gpt-4o", UserPrompt: "u"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotBody["model"] != "gpt-4o" {
		t.Fatalf("model = %v", gotBody["model"])
	}
}

func TestCompleteCategorizesRateLimit(t *testing.T) {
	srv := newFakeCompletionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_error"}}`))
	})

	client := newClientForServer(t, srv)
	_, err := client.Complete(context.Background(), Request{UserPrompt: "u"})
	if CategoryOf(err) != CategoryRateLimited {
		t.Fatalf("CategoryOf() = %q, err=%v", CategoryOf(err), err)
	}
}

func TestCompleteCategorizesProviderError(t *testing.T) {
	srv := newFakeCompletionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream on fire","type":"server_error"}}`))
	})

	client := newClientForServer(t, srv)
	_, err := client.Complete(context.Background(), Request{UserPrompt: "u"})
	if CategoryOf(err) != CategoryProvider {
		t.Fatalf("CategoryOf() = %q, err=%v", CategoryOf(err), err)
	}
}

func TestCompleteCategorizesConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := newClientForServer(t, srv)
	_, err := client.Complete(context.Background(), Request{UserPrompt: "u"})
	if CategoryOf(err) != CategoryConnection {
		t.Fatalf("CategoryOf() = %q, err=%v", CategoryOf(err), err)
	}
}

func TestCompleteCategorizesEmptyResponse(t *testing.T) {
	srv := newFakeCompletionServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	})

	client := newClientForServer(t, srv)
	_, err := client.Complete(context.Background(), Request{UserPrompt: "u"})
	if CategoryOf(err) != CategoryEmptyResponse {
		t.Fatalf("CategoryOf() = %q, err=%v", CategoryOf(err), err)
	}
}
