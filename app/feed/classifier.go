package feed

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/match"
)

// RelevanceJudge gives a second opinion on keyword-matched items.
type RelevanceJudge interface {
	Judge(ctx context.Context, item database.Item) (bool, error)
}

// Classifier decides topic relevance. Items from dedicated feeds are always
// relevant. Other items must match a topic keyword and, when a judge is set,
// be confirmed by it.
type Classifier struct {
	dedicated []string
	keywords  []string
	judge     RelevanceJudge
}

// NewClassifier builds a classifier. judge may be nil. A nil keyword list is
// treated as empty, so only dedicated feeds pass.
func NewClassifier(dedicated, keywords []string, judge RelevanceJudge) *Classifier {
	if keywords == nil {
		keywords = []string{}
	}
	return &Classifier{
		dedicated: dedicated,
		keywords:  keywords,
		judge:     judge,
	}
}

func (c *Classifier) IsDedicated(feedURL string) bool {
	feedURL = strings.ToLower(feedURL)
	for _, pattern := range c.dedicated {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" && strings.Contains(feedURL, pattern) {
			return true
		}
	}
	return false
}

// IsRelevant never fails: a judge error resolves to relevant.
func (c *Classifier) IsRelevant(ctx context.Context, item database.Item) bool {
	if c.IsDedicated(item.OriginFeed) {
		return true
	}

	if !match.Any(c.keywords, item.Title, item.Excerpt) {
		return false
	}

	if c.judge == nil {
		return true
	}

	relevant, err := c.judge.Judge(ctx, item)
	if err != nil {
		slog.Warn("Relevance judge failed, keeping item", "item_id", item.ID, "error", err)
		return true
	}
	return relevant
}
