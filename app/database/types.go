package database

import (
	"cmp"
	"time"
)

type Relevance string

const (
	RelevanceUnknown    Relevance = "unknown"
	RelevanceRelevant   Relevance = "relevant"
	RelevanceIrrelevant Relevance = "irrelevant"
)

type DispatchStatus string

const (
	DispatchSuccess  DispatchStatus = "success"
	DispatchFailed   DispatchStatus = "failed"
	DispatchFiltered DispatchStatus = "filtered"
)

func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchSuccess, DispatchFailed, DispatchFiltered:
		return true
	}
	return false
}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Item is one ingested content unit, keyed by its source URL.
type Item struct {
	ID                int64
	DedupKey          string // source URL
	Title             string
	Excerpt           string
	SourceName        string
	OriginFeed        string
	PublishedAt       *time.Time
	IngestedAt        time.Time
	Relevance         Relevance
	Body              *string
	TranslatedTitle   *string
	TranslatedSummary *string
}

// DisplayTitle prefers the translated title and falls back to the original.
func (i Item) DisplayTitle() string {
	if i.TranslatedTitle != nil {
		return cmp.Or(*i.TranslatedTitle, i.Title)
	}
	return i.Title
}

// DisplaySummary prefers the translated summary and falls back to the excerpt.
func (i Item) DisplaySummary() string {
	if i.TranslatedSummary != nil {
		return cmp.Or(*i.TranslatedSummary, i.Excerpt)
	}
	return i.Excerpt
}

type Recipient struct {
	ID          int64
	ExternalID  string
	DisplayName string
	IsActive    bool
	IsAdmin     bool
	// KeywordFilter is nil for "everything"; an empty slice receives nothing.
	KeywordFilter []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DispatchRecord struct {
	ID          int64
	ItemID      int64
	Channel     string
	RecipientID *int64 // nil for broadcast channels
	Status      DispatchStatus
	SentAt      time.Time
}

type RunCounters struct {
	Fetched    int `json:"fetched"`
	NewItems   int `json:"new_items"`
	Relevant   int `json:"relevant"`
	Retrieved  int `json:"retrieved"`
	Translated int `json:"translated"`
	Sent       int `json:"sent"`
}

type PipelineRun struct {
	ID         int64
	RunKey     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Counters   RunCounters
	Errors     []string
	Status     RunStatus
}

type Stats struct {
	Total      int `json:"total"`
	Relevant   int `json:"relevant"`
	Translated int `json:"translated"`
}

type SourceStats struct {
	Source     string `json:"source"`
	Total      int    `json:"total"`
	Relevant   int    `json:"relevant"`
	Translated int    `json:"translated"`
}
