package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/paleo-digest/app/database"
)

type ClassifyTask struct {
	Task
	classifier RelevanceClassifier
	items      database.ArticleStore
	counters   *database.RunCounters
}

func NewClassifyTask(classifier RelevanceClassifier, items database.ArticleStore, counters *database.RunCounters) *ClassifyTask {
	return &ClassifyTask{
		Task:       NewTask(TaskTypeClassify),
		classifier: classifier,
		items:      items,
		counters:   counters,
	}
}

func (t *ClassifyTask) Execute(ctx context.Context) error {
	pending, err := t.items.SelectPendingClassification(ctx)
	if err != nil {
		return fmt.Errorf("failed to select pending items: %w", err)
	}

	relevant := 0
	for _, item := range pending {
		value := database.RelevanceIrrelevant
		if t.classifier.IsRelevant(ctx, item) {
			value = database.RelevanceRelevant
			relevant++
		}

		if err := t.items.SetRelevance(ctx, item.ID, value); err != nil {
			t.counters.Relevant = relevant
			return fmt.Errorf("failed to set relevance for item %d: %w", item.ID, err)
		}
	}

	t.counters.Relevant = relevant

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"classified", len(pending),
		"relevant", relevant)

	return nil
}
