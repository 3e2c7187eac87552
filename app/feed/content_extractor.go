package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// MaxBodyLength caps extracted text to keep translation prompts small.
const MaxBodyLength = 5000

type ContentExtractor struct {
	maxLength int
}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{maxLength: MaxBodyLength}
}

// Run extracts the main article text from an HTML page. The text is
// whitespace-collapsed and capped at the maximum body length in runes.
func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("failed to read extracted content: %w", err)
	}

	text := truncateRunes(collapseWhitespace(doc.Text()), e.maxLength)

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(text))

	return text, nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
