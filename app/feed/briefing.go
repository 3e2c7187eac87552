package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/paleo-digest/app/database"
)

const ruleWidth = 22

var (
	headerRule = strings.Repeat("━", ruleWidth)
	itemRule   = strings.Repeat("─", ruleWidth)
)

// SectionSeparator divides item sections in a briefing. Senders that must
// split long messages cut only here.
var SectionSeparator = "\n" + itemRule + "\n"

// BuildBriefing renders the digest message for items.
func BuildBriefing(items []database.Item, date time.Time) string {
	lines := []string{
		fmt.Sprintf("🦴 Paleontology News Briefing (%s)", date.Format("2006-01-02")),
		headerRule,
		"",
	}

	for i, item := range items {
		lines = append(lines,
			"📌 "+item.DisplayTitle(),
			item.DisplaySummary(),
			"🔗 "+item.DedupKey,
			"📰 "+item.SourceName,
		)
		if i < len(items)-1 {
			lines = append(lines, "", itemRule, "")
		}
	}

	lines = append(lines,
		"",
		headerRule,
		fmt.Sprintf("%d %s in this briefing.", len(items), plural(len(items), "article", "articles")),
	)

	return strings.Join(lines, "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
