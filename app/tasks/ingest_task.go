package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/paleo-digest/app/cfg"
	"github.com/lysyi3m/paleo-digest/app/database"
)

type IngestTask struct {
	Task
	sourcesFile string
	feeds       FeedSource
	items       database.ArticleStore
	counters    *database.RunCounters
}

func NewIngestTask(sourcesFile string, feeds FeedSource, items database.ArticleStore, counters *database.RunCounters) *IngestTask {
	return &IngestTask{
		Task:        NewTask(TaskTypeIngest),
		sourcesFile: sourcesFile,
		feeds:       feeds,
		items:       items,
		counters:    counters,
	}
}

func (t *IngestTask) Execute(ctx context.Context) error {
	sources, err := cfg.LoadSources(t.sourcesFile)
	if err != nil {
		return err
	}

	var candidates []database.Item
	failed := 0

	for _, url := range sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entries, err := t.feeds.Fetch(ctx, url)
		if err != nil {
			slog.Warn("Failed to fetch feed", "url", url, "error", err)
			failed++
			continue
		}

		for _, entry := range entries {
			candidates = append(candidates, database.Item{
				DedupKey:    entry.Link,
				Title:       entry.Title,
				Excerpt:     entry.Excerpt,
				SourceName:  entry.Source,
				OriginFeed:  entry.FeedURL,
				PublishedAt: entry.PublishedAt,
			})
		}
	}

	newCount, err := t.items.InsertIfAbsent(ctx, candidates)
	if err != nil {
		return fmt.Errorf("failed to store items: %w", err)
	}

	t.counters.Fetched = len(candidates)
	t.counters.NewItems = newCount

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"sources", len(sources),
		"failed_sources", failed,
		"fetched", len(candidates),
		"new", newCount)

	return nil
}
