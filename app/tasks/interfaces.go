package tasks

import (
	"context"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/feed"
)

// FeedSource fetches the entries of one feed. A malformed feed yields an
// empty list, not an error.
type FeedSource interface {
	Fetch(ctx context.Context, url string) ([]feed.Entry, error)
}

// RelevanceClassifier never fails; internal errors resolve to relevant.
type RelevanceClassifier interface {
	IsRelevant(ctx context.Context, item database.Item) bool
}

type BodyRetriever interface {
	FetchBody(ctx context.Context, url string) (string, bool)
}

type ItemTranslator interface {
	Translate(ctx context.Context, item database.Item) (feed.Translation, error)
}

type Alerter interface {
	Alert(ctx context.Context, errs []string) error
}

// PipelineRunner runs the whole pipeline once.
type PipelineRunner interface {
	Run(ctx context.Context) (*database.PipelineRun, error)
}

// TaskSchedulerInterface runs the pipeline periodically and on demand.
//
//	scheduler := NewScheduler(pipeline, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	Trigger() error
}
