package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/paleo-digest/app/database"
)

type EnrichTask struct {
	Task
	retriever BodyRetriever
	items     database.ArticleStore
	limit     int
	counters  *database.RunCounters
}

// NewEnrichTask builds the full-text stage. A nil retriever disables it.
func NewEnrichTask(retriever BodyRetriever, items database.ArticleStore, limit int, counters *database.RunCounters) *EnrichTask {
	return &EnrichTask{
		Task:      NewTask(TaskTypeEnrich),
		retriever: retriever,
		items:     items,
		limit:     limit,
		counters:  counters,
	}
}

func (t *EnrichTask) Execute(ctx context.Context) error {
	if t.retriever == nil {
		slog.Debug("Full-text retrieval disabled, skipping")
		return nil
	}

	pending, err := t.items.SelectPendingBody(ctx, t.limit)
	if err != nil {
		return fmt.Errorf("failed to select items without body: %w", err)
	}

	retrieved := 0
	for _, item := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		body, ok := t.retriever.FetchBody(ctx, item.DedupKey)
		if !ok {
			continue
		}

		if err := t.items.SetBody(ctx, item.ID, body); err != nil {
			t.counters.Retrieved = retrieved
			return fmt.Errorf("failed to store body for item %d: %w", item.ID, err)
		}
		retrieved++
	}

	t.counters.Retrieved = retrieved

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"attempted", len(pending),
		"retrieved", retrieved)

	return nil
}
