package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Complete(t *testing.T) {
	var got messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("Expected version header, got %q", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"  Title: Hello\nSummary: World  "}]}`))
	}))
	defer server.Close()

	client := NewClient("secret").WithEndpoint(server.URL)
	text, err := client.Complete(context.Background(), Request{
		Model:  "test-model",
		System: "be brief",
		Prompt: "summarize",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if text != "Title: Hello\nSummary: World" {
		t.Errorf("Unexpected text: %q", text)
	}
	if got.Model != "test-model" || got.System != "be brief" || got.MaxTokens != 512 {
		t.Errorf("Unexpected request: %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "summarize" {
		t.Errorf("Unexpected messages: %+v", got.Messages)
	}
}

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		errText string
	}{
		{name: "http error", status: http.StatusTooManyRequests, body: `{"error":"rate limited"}`, errText: "429"},
		{name: "empty content", status: http.StatusOK, body: `{"content":[]}`, errText: "empty"},
		{name: "blank text", status: http.StatusOK, body: `{"content":[{"type":"text","text":"   "}]}`, errText: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient("secret").WithEndpoint(server.URL).Complete(context.Background(), Request{Prompt: "x"})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got %v", tt.errText, err)
			}
		})
	}
}

func TestClient_Complete_MissingKey(t *testing.T) {
	if _, err := NewClient("").Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("Expected error without API key")
	}
}
