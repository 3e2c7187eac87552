package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/paleo-digest/app/database"
)

type TranslateTask struct {
	Task
	translator ItemTranslator
	items      database.ArticleStore
	limit      int
	counters   *database.RunCounters
}

func NewTranslateTask(translator ItemTranslator, items database.ArticleStore, limit int, counters *database.RunCounters) *TranslateTask {
	return &TranslateTask{
		Task:       NewTask(TaskTypeTranslate),
		translator: translator,
		items:      items,
		limit:      limit,
		counters:   counters,
	}
}

func (t *TranslateTask) Execute(ctx context.Context) error {
	if t.translator == nil {
		return fmt.Errorf("translator is not configured")
	}

	pending, err := t.items.SelectPendingTranslation(ctx)
	if err != nil {
		return fmt.Errorf("failed to select untranslated items: %w", err)
	}
	if len(pending) == 0 {
		slog.Debug("No items to translate")
		return nil
	}

	if t.limit > 0 && len(pending) > t.limit {
		pending = pending[:t.limit]
	}

	translated := 0
	for _, item := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tr, err := t.translator.Translate(ctx, item)
		if err != nil {
			slog.Warn("Failed to translate item", "item_id", item.ID, "url", item.DedupKey, "error", err)
			continue
		}

		if err := t.items.SetTranslation(ctx, item.ID, tr.Title, tr.Summary); err != nil {
			t.counters.Translated = translated
			return fmt.Errorf("failed to store translation for item %d: %w", item.ID, err)
		}
		translated++
	}

	t.counters.Translated = translated

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"attempted", len(pending),
		"translated", translated)

	return nil
}
