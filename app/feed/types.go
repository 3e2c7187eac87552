package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Entry is one item read from a source feed, before it is stored.
type Entry struct {
	Link        string
	Title       string
	Excerpt     string
	Source      string
	FeedURL     string
	PublishedAt *time.Time
}

// Translation is the translated title and summary of one item.
type Translation struct {
	Title   string
	Summary string
}
