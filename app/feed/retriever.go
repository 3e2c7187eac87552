package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// MinBodyLength is the shortest extracted text worth keeping.
	MinBodyLength      = 100
	DefaultFetchDelay  = 1500 * time.Millisecond
	DefaultBodyTimeout = 15 * time.Second
)

// Retriever downloads article pages and extracts their body text. Calls are
// spaced by at least delay.
type Retriever struct {
	httpClient *http.Client
	extractor  *ContentExtractor
	userAgent  string
	delay      time.Duration

	mu        sync.Mutex
	lastFetch time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewRetriever(httpClient *http.Client, extractor *ContentExtractor, userAgent string, delay time.Duration) *Retriever {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultBodyTimeout}
	}
	if extractor == nil {
		extractor = NewContentExtractor()
	}
	return &Retriever{
		httpClient: httpClient,
		extractor:  extractor,
		userAgent:  userAgent,
		delay:      delay,
		sleep:      sleepContext,
	}
}

// FetchBody returns the article text, or false when the page could not be
// fetched, is not HTML, or yields too little text.
func (r *Retriever) FetchBody(ctx context.Context, url string) (string, bool) {
	if err := r.throttle(ctx); err != nil {
		return "", false
	}

	data, err := r.fetchArticleContent(ctx, url)
	if err != nil {
		slog.Debug("Failed to retrieve article", "url", url, "error", err)
		return "", false
	}

	text, err := r.extractor.Run(data)
	if err != nil {
		slog.Debug("Failed to extract article", "url", url, "error", err)
		return "", false
	}

	if len([]rune(text)) < MinBodyLength {
		slog.Debug("Extracted article too short", "url", url, "length", len(text))
		return "", false
	}

	return text, true
}

func (r *Retriever) throttle(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastFetch.IsZero() && r.delay > 0 {
		if wait := r.delay - time.Since(r.lastFetch); wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	r.lastFetch = time.Now()
	return nil
}

func (r *Retriever) fetchArticleContent(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, DefaultBodyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
