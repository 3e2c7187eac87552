package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Fossil Weekly</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <item>
      <title>New Raptor Found</title>
      <link>https://example.com/raptor</link>
      <description>&lt;p&gt;A &lt;b&gt;new&lt;/b&gt;
        raptor species.&lt;/p&gt;</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No Link Item</title>
      <description>Should be skipped</description>
    </item>
    <item>
      <title>Undated</title>
      <link>https://example.com/undated</link>
      <description>Plain text</description>
    </item>
  </channel>
</rss>`

func TestParserRun(t *testing.T) {
	parser := NewParser(nil, "")
	metadata, entries, err := parser.Run([]byte(testRSS), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Fossil Weekly" {
		t.Errorf("Expected title 'Fossil Weekly', got: %s", metadata.Title)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	first := entries[0]
	if first.Link != "https://example.com/raptor" {
		t.Errorf("Expected link 'https://example.com/raptor', got: %s", first.Link)
	}
	if first.Excerpt != "A new raptor species." {
		t.Errorf("Expected stripped excerpt, got: %q", first.Excerpt)
	}
	if first.Source != "Fossil Weekly" {
		t.Errorf("Expected source 'Fossil Weekly', got: %s", first.Source)
	}
	if first.FeedURL != "https://example.com/feed.xml" {
		t.Errorf("Expected feed URL to be recorded, got: %s", first.FeedURL)
	}
	if first.PublishedAt == nil || first.PublishedAt.Year() != 2023 {
		t.Errorf("Expected published date in 2023, got: %v", first.PublishedAt)
	}

	if entries[1].PublishedAt != nil {
		t.Errorf("Expected nil published date, got: %v", entries[1].PublishedAt)
	}
	if entries[1].Excerpt != "Plain text" {
		t.Errorf("Expected 'Plain text', got: %q", entries[1].Excerpt)
	}
}

func TestParserRunUntitledFeedUsesURL(t *testing.T) {
	data := `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>A</title><link>https://example.com/a</link></item>
</channel></rss>`

	_, entries, err := NewParser(nil, "").Run([]byte(data), "https://example.com/rss")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	if entries[0].Source != "https://example.com/rss" {
		t.Errorf("Expected feed URL as source, got: %s", entries[0].Source)
	}
}

func TestParserRunInvalid(t *testing.T) {
	_, _, err := NewParser(nil, "").Run([]byte("not a feed"), "https://example.com/rss")
	if err == nil {
		t.Error("Expected error for invalid feed")
	}
}

func TestParserFetch(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(testRSS))
		case "/broken.xml":
			w.Write([]byte("<html>definitely not a feed"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	parser := NewParser(server.Client(), "PaleoDigest/test")
	ctx := context.Background()

	entries, err := parser.Fetch(ctx, server.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got: %d", len(entries))
	}
	if gotAgent != "PaleoDigest/test" {
		t.Errorf("Expected user agent to be sent, got: %q", gotAgent)
	}

	entries, err = parser.Fetch(ctx, server.URL+"/broken.xml")
	if err != nil {
		t.Errorf("Expected malformed feed to yield no error, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries from malformed feed, got: %d", len(entries))
	}

	if _, err := parser.Fetch(ctx, server.URL+"/missing.xml"); err == nil {
		t.Error("Expected error for HTTP 404")
	}
}
