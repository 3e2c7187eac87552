package database

import (
	"context"
	"errors"
	"testing"
)

func TestItemRepository_InsertIfAbsent_DeduplicatesWithinCall(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	n, err := store.InsertIfAbsent(ctx, []Item{
		newTestItem("https://example.com/1", "First"),
		newTestItem("https://example.com/1", "First again"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 inserted, got %d", n)
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Expected 1 stored item, got %d", stats.Total)
	}
}

func TestItemRepository_InsertIfAbsent_DeduplicatesAcrossCalls(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	first, err := store.InsertIfAbsent(ctx, []Item{
		newTestItem("https://example.com/1", "One"),
		newTestItem("https://example.com/2", "Two"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	second, err := store.InsertIfAbsent(ctx, []Item{
		newTestItem("https://example.com/2", "Two"),
		newTestItem("https://example.com/3", "Three"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if first != 2 || second != 1 {
		t.Errorf("Expected 2 then 1 inserted, got %d then %d", first, second)
	}
}

func TestItemRepository_InsertIfAbsent_SkipsEmptyKey(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))

	n, err := store.InsertIfAbsent(context.Background(), []Item{newTestItem("  ", "No link")})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 inserted, got %d", n)
	}
}

func TestItemRepository_InsertIfAbsent_StoresMetadata(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	candidate := newTestItem("https://example.com/meta", "Metadata")
	if _, err := store.InsertIfAbsent(ctx, []Item{candidate}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	pending, err := store.SelectPendingClassification(ctx)
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending item, got %d", len(pending))
	}

	got := pending[0]
	if got.Title != "Metadata" || got.SourceName != "Test Source" || got.OriginFeed != candidate.OriginFeed {
		t.Errorf("Unexpected metadata: %+v", got)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(*candidate.PublishedAt) {
		t.Errorf("Expected published_at %v, got %v", candidate.PublishedAt, got.PublishedAt)
	}
	if got.IngestedAt.IsZero() {
		t.Errorf("Expected ingested_at to be set")
	}
	if got.Relevance != RelevanceUnknown {
		t.Errorf("Expected unknown relevance, got %s", got.Relevance)
	}
	if got.Body != nil || got.TranslatedSummary != nil {
		t.Errorf("Expected no body or translation on a fresh item")
	}
}

func TestItemRepository_SetRelevance_ShrinksPendingSet(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := store.InsertIfAbsent(ctx, []Item{
		newTestItem("https://example.com/1", "One"),
		newTestItem("https://example.com/2", "Two"),
		newTestItem("https://example.com/3", "Three"),
	})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	pending, _ := store.SelectPendingClassification(ctx)
	if len(pending) != 3 {
		t.Fatalf("Expected 3 pending, got %d", len(pending))
	}

	if err := store.SetRelevance(ctx, pending[0].ID, RelevanceRelevant); err != nil {
		t.Fatalf("Failed to set relevance: %v", err)
	}
	if err := store.SetRelevance(ctx, pending[1].ID, RelevanceIrrelevant); err != nil {
		t.Fatalf("Failed to set relevance: %v", err)
	}

	after, _ := store.SelectPendingClassification(ctx)
	if len(after) != 1 {
		t.Errorf("Expected pending set to shrink by 2, got %d remaining", len(after))
	}
}

func TestItemRepository_SetRelevance_RejectsUnknown(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	ids := seedTranslatedItems(t, store, "Fossil")

	err := store.SetRelevance(ctx, ids[0], RelevanceUnknown)
	if !errors.Is(err, ErrInvalidRelevance) {
		t.Errorf("Expected ErrInvalidRelevance, got %v", err)
	}

	item, _ := store.GetItem(ctx, ids[0])
	if item.Relevance != RelevanceRelevant {
		t.Errorf("Expected relevance to stay relevant, got %s", item.Relevance)
	}
}

func TestItemRepository_SetRelevance_LastWriteWins(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	ids := seedTranslatedItems(t, store, "Fossil")

	if err := store.SetRelevance(ctx, ids[0], RelevanceIrrelevant); err != nil {
		t.Fatalf("Failed to set relevance: %v", err)
	}

	item, _ := store.GetItem(ctx, ids[0])
	if item.Relevance != RelevanceIrrelevant {
		t.Errorf("Expected irrelevant, got %s", item.Relevance)
	}

	pending, _ := store.SelectPendingClassification(ctx)
	if len(pending) != 0 {
		t.Errorf("Expected reclassified item to stay out of the pending set")
	}
}

func TestItemRepository_SetRelevance_UnknownItem(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))

	err := store.SetRelevance(context.Background(), 999, RelevanceRelevant)
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestItemRepository_SelectPendingBody(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := store.InsertIfAbsent(ctx, []Item{
		newTestItem("https://example.com/1", "One"),
		newTestItem("https://example.com/2", "Two"),
		newTestItem("https://example.com/3", "Three"),
		newTestItem("https://example.com/4", "Four"),
	})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	pending, _ := store.SelectPendingClassification(ctx)
	_ = store.SetRelevance(ctx, pending[0].ID, RelevanceRelevant)
	_ = store.SetRelevance(ctx, pending[1].ID, RelevanceIrrelevant)
	_ = store.SetRelevance(ctx, pending[2].ID, RelevanceRelevant)
	_ = store.SetRelevance(ctx, pending[3].ID, RelevanceRelevant)

	limited, err := store.SelectPendingBody(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to select pending body: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("Expected 2 items with limit, got %d", len(limited))
	}
	if limited[0].ID != pending[0].ID || limited[1].ID != pending[2].ID {
		t.Errorf("Expected insertion order, got ids %d, %d", limited[0].ID, limited[1].ID)
	}

	if err := store.SetBody(ctx, pending[0].ID, "Full body text"); err != nil {
		t.Fatalf("Failed to set body: %v", err)
	}

	all, _ := store.SelectPendingBody(ctx, 0)
	if len(all) != 2 {
		t.Errorf("Expected 2 items still needing a body, got %d", len(all))
	}
	if containsItem(all, pending[0].ID) {
		t.Errorf("Item with body should no longer be pending")
	}
	if containsItem(all, pending[1].ID) {
		t.Errorf("Irrelevant item should never be pending body")
	}

	item, _ := store.GetItem(ctx, pending[0].ID)
	if item.Body == nil || *item.Body != "Full body text" {
		t.Errorf("Expected stored body, got %v", item.Body)
	}
}

func TestItemRepository_UnknownItemsInvisibleToLaterStages(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.InsertIfAbsent(ctx, []Item{newTestItem("https://example.com/1", "One")}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	body, _ := store.SelectPendingBody(ctx, 10)
	translation, _ := store.SelectPendingTranslation(ctx)
	if len(body) != 0 || len(translation) != 0 {
		t.Errorf("Expected unknown items to be invisible, got %d body and %d translation", len(body), len(translation))
	}
}

func TestItemRepository_SetTranslation(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.InsertIfAbsent(ctx, []Item{newTestItem("https://example.com/1", "Mammoth tusk")}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	pending, _ := store.SelectPendingClassification(ctx)
	_ = store.SetRelevance(ctx, pending[0].ID, RelevanceRelevant)

	toTranslate, _ := store.SelectPendingTranslation(ctx)
	if len(toTranslate) != 1 {
		t.Fatalf("Expected 1 item pending translation, got %d", len(toTranslate))
	}

	if err := store.SetTranslation(ctx, pending[0].ID, "매머드 상아", "요약"); err != nil {
		t.Fatalf("Failed to set translation: %v", err)
	}

	toTranslate, _ = store.SelectPendingTranslation(ctx)
	if len(toTranslate) != 0 {
		t.Errorf("Expected no items pending translation, got %d", len(toTranslate))
	}

	item, _ := store.GetItem(ctx, pending[0].ID)
	if item.DisplayTitle() != "매머드 상아" || item.DisplaySummary() != "요약" {
		t.Errorf("Expected translated display fields, got %q / %q", item.DisplayTitle(), item.DisplaySummary())
	}
}

func TestItemRepository_Stats(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	seedTranslatedItems(t, store, "One", "Two")
	other := newTestItem("https://other.example.com/1", "Other")
	other.SourceName = "Other Source"
	if _, err := store.InsertIfAbsent(ctx, []Item{other}); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 3 || stats.Relevant != 2 || stats.Translated != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	sources, err := store.GetSourceStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get source stats: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}
	if sources[0].Source != "Test Source" || sources[0].Total != 2 || sources[0].Translated != 2 {
		t.Errorf("Unexpected first source row: %+v", sources[0])
	}
	if sources[1].Source != "Other Source" || sources[1].Relevant != 0 {
		t.Errorf("Unexpected second source row: %+v", sources[1])
	}
}

func TestItemRepository_GetRecentTranslated(t *testing.T) {
	store := NewItemRepository(setupTestDB(t))
	ctx := context.Background()

	ids := seedTranslatedItems(t, store, "One", "Two", "Three")

	recent, err := store.GetRecentTranslated(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to get recent items: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(recent))
	}
	if recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Errorf("Expected newest first, got %d, %d", recent[0].ID, recent[1].ID)
	}
}
