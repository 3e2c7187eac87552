package feed

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	httpClient   *http.Client
	userAgent    string
}

func NewParser(httpClient *http.Client, userAgent string) *Parser {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

// Fetch downloads and parses one feed. A malformed feed yields no entries
// and no error; only transport failures are returned.
func (p *Parser) Fetch(ctx context.Context, url string) ([]Entry, error) {
	data, err := p.download(ctx, url)
	if err != nil {
		return nil, err
	}

	_, entries, err := p.Run(data, url)
	if err != nil {
		slog.Warn("Failed to parse feed", "url", url, "error", err)
		return []Entry{}, nil
	}

	slog.Debug("Feed fetched", "url", url, "entries", len(entries))
	return entries, nil
}

func (p *Parser) Run(data []byte, feedURL string) (*Metadata, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	source := cmp.Or(strings.TrimSpace(feed.Title), feedURL)

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		entries = append(entries, p.normalizeItem(item, source, feedURL))
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, source, feedURL string) Entry {
	entry := Entry{
		Link:    strings.TrimSpace(item.Link),
		Title:   strings.TrimSpace(item.Title),
		Excerpt: stripHTML(cmp.Or(item.Description, item.Content)),
		Source:  source,
		FeedURL: feedURL,
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		entry.PublishedAt = &published
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		entry.PublishedAt = &updated
	}

	return entry
}

func (p *Parser) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// stripHTML returns the text content of an HTML fragment.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
