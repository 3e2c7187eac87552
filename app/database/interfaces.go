package database

import (
	"context"
)

// ArticleStore is the deduplicated, stage-tagged record of every ingested item.
type ArticleStore interface {
	InsertIfAbsent(ctx context.Context, candidates []Item) (int, error)

	SelectPendingClassification(ctx context.Context) ([]Item, error)
	SetRelevance(ctx context.Context, id int64, value Relevance) error

	SelectPendingBody(ctx context.Context, limit int) ([]Item, error)
	SetBody(ctx context.Context, id int64, text string) error

	SelectPendingTranslation(ctx context.Context) ([]Item, error)
	SetTranslation(ctx context.Context, id int64, title, summary string) error

	GetItem(ctx context.Context, id int64) (*Item, error)
	GetRecentTranslated(ctx context.Context, limit int) ([]Item, error)
	GetStats(ctx context.Context) (Stats, error)
	GetSourceStats(ctx context.Context) ([]SourceStats, error)
}

type RecipientRegistry interface {
	Add(ctx context.Context, externalID, displayName string, isAdmin bool) (int64, error)
	GetByExternalID(ctx context.Context, externalID string) (*Recipient, error)
	GetByID(ctx context.Context, id int64) (*Recipient, error)
	GetAll(ctx context.Context) ([]Recipient, error)
	GetActive(ctx context.Context) ([]Recipient, error)
	GetActiveAdmins(ctx context.Context) ([]Recipient, error)

	SetActive(ctx context.Context, id int64, active bool) error
	Remove(ctx context.Context, id int64) error

	SetKeywordFilter(ctx context.Context, id int64, keywords []string) error
	GetKeywordFilter(ctx context.Context, id int64) ([]string, error)

	SeedAdmin(ctx context.Context, externalID, displayName string) (int64, error)
	Matches(text string, keywords []string) bool
}

type DispatchLedger interface {
	UnsentBroadcast(ctx context.Context, channel string) ([]Item, error)
	UnsentForRecipient(ctx context.Context, channel string, recipientID int64) ([]Item, error)
	Record(ctx context.Context, itemID int64, channel string, status DispatchStatus, recipientID *int64) error

	GetRecords(ctx context.Context, channel string, recipientID *int64) ([]DispatchRecord, error)
	CountDelivered(ctx context.Context) (int, error)
}

// RunRecorder owns the pipeline run audit records.
type RunRecorder interface {
	StartRun(ctx context.Context, runKey string) (*PipelineRun, error)
	FinishRun(ctx context.Context, id int64, counters RunCounters, errs []string) error
	GetRun(ctx context.Context, id int64) (*PipelineRun, error)
	GetRecentRuns(ctx context.Context, limit int) ([]PipelineRun, error)
}

// LegacyBackfiller assigns pre-recipient broadcast history to a recipient.
type LegacyBackfiller interface {
	BackfillLegacyDispatches(ctx context.Context, recipientID int64) (int64, error)
}
