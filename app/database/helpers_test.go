package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db := openTestDB(t)
	if err := NewMigrator(db, []string{"telegram"}).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	return db
}

func newTestItem(url, title string) Item {
	published := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return Item{
		DedupKey:    url,
		Title:       title,
		Excerpt:     "Excerpt for " + title,
		SourceName:  "Test Source",
		OriginFeed:  "https://example.com/feed.xml",
		PublishedAt: &published,
	}
}

// seedTranslatedItems stores items, marks them relevant and translated, and
// returns their ids in insertion order.
func seedTranslatedItems(t *testing.T, store *ItemRepository, titles ...string) []int64 {
	t.Helper()
	ctx := context.Background()

	candidates := make([]Item, 0, len(titles))
	for i, title := range titles {
		candidates = append(candidates, newTestItem("https://example.com/a/"+string(rune('a'+i)), title))
	}
	if _, err := store.InsertIfAbsent(ctx, candidates); err != nil {
		t.Fatalf("Failed to insert items: %v", err)
	}

	pending, err := store.SelectPendingClassification(ctx)
	if err != nil {
		t.Fatalf("Failed to select pending items: %v", err)
	}

	ids := make([]int64, 0, len(pending))
	for _, item := range pending {
		if err := store.SetRelevance(ctx, item.ID, RelevanceRelevant); err != nil {
			t.Fatalf("Failed to set relevance: %v", err)
		}
		if err := store.SetTranslation(ctx, item.ID, item.Title, item.Excerpt); err != nil {
			t.Fatalf("Failed to set translation: %v", err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

func containsItem(items []Item, id int64) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
