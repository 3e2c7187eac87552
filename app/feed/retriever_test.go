package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newArticleServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(articleHTML))
		case "/short":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body><article><p>Too short.</p></article></body></html>"))
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte(articleHTML))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
}

func TestRetrieverFetchBody(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	r := NewRetriever(server.Client(), nil, "PaleoDigest/test", 0)
	ctx := context.Background()

	body, ok := r.FetchBody(ctx, server.URL+"/article")
	if !ok {
		t.Fatal("Expected article body")
	}
	if !strings.Contains(body, "feathered dinosaur") {
		t.Errorf("Expected article text, got: %q", body)
	}

	tests := []struct {
		name string
		path string
	}{
		{"too short", "/short"},
		{"not html", "/pdf"},
		{"http error", "/missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if body, ok := r.FetchBody(ctx, server.URL+tt.path); ok {
				t.Errorf("Expected no body, got: %q", body)
			}
		})
	}
}

func TestRetrieverThrottles(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	r := NewRetriever(server.Client(), nil, "", time.Hour)
	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	ctx := context.Background()
	r.FetchBody(ctx, server.URL+"/article")
	r.FetchBody(ctx, server.URL+"/article")

	if len(waits) != 1 {
		t.Fatalf("Expected 1 wait between fetches, got: %d", len(waits))
	}
	if waits[0] <= 59*time.Minute || waits[0] > time.Hour {
		t.Errorf("Expected wait close to the delay, got: %v", waits[0])
	}
}

func TestRetrieverCancelledWait(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	r := NewRetriever(server.Client(), nil, "", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	r.FetchBody(ctx, server.URL+"/article")
	cancel()

	if _, ok := r.FetchBody(ctx, server.URL+"/article"); ok {
		t.Error("Expected cancelled context to abort the fetch")
	}
}
