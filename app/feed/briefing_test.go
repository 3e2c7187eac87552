package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/paleo-digest/app/database"
)

func strPtr(s string) *string { return &s }

func TestBuildBriefing(t *testing.T) {
	items := []database.Item{
		{DedupKey: "https://example.com/a", Title: "A", TranslatedTitle: strPtr("첫째"), TranslatedSummary: strPtr("요약 하나"), SourceName: "Fossil Weekly"},
		{DedupKey: "https://example.com/b", Title: "B", Excerpt: "excerpt b", SourceName: "Dino Daily"},
	}
	date := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)

	text := BuildBriefing(items, date)

	if !strings.HasPrefix(text, "🦴 Paleontology News Briefing (2024-03-09)\n"+headerRule) {
		t.Errorf("Unexpected header: %q", text)
	}
	for _, want := range []string{"📌 첫째", "요약 하나", "🔗 https://example.com/a", "📰 Fossil Weekly", "📌 B", "excerpt b"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected briefing to contain %q", want)
		}
	}
	if !strings.HasSuffix(text, "2 articles in this briefing.") {
		t.Errorf("Unexpected footer: %q", text)
	}
	if n := strings.Count(text, SectionSeparator); n != 1 {
		t.Errorf("Expected 1 section separator, got %d", n)
	}
}

func TestBuildBriefingSingular(t *testing.T) {
	text := BuildBriefing([]database.Item{{DedupKey: "https://example.com/a", Title: "A"}}, time.Now())

	if !strings.HasSuffix(text, "1 article in this briefing.") {
		t.Errorf("Unexpected footer: %q", text)
	}
	if strings.Contains(text, SectionSeparator) {
		t.Error("Expected no separator for a single item")
	}
}
