package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/feed"
	"github.com/lysyi3m/paleo-digest/app/notify"
)

type testEnv struct {
	items      *database.ItemRepository
	recipients *database.RecipientRepository
	ledger     *database.DispatchRepository
	runs       *database.RunRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, []string{"telegram"})
	if err := migrator.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	return &testEnv{
		items:      database.NewItemRepository(db),
		recipients: database.NewRecipientRepository(db, migrator),
		ledger:     database.NewDispatchRepository(db),
		runs:       database.NewRunRepository(db),
	}
}

func (e *testEnv) options(sourcesFile string) PipelineOptions {
	return PipelineOptions{
		Items:           e.items,
		Recipients:      e.recipients,
		Ledger:          e.ledger,
		Runs:            e.runs,
		SourcesFile:     sourcesFile,
		Classifier:      fakeClassifier{},
		MaxRetrievals:   10,
		MaxTranslations: 10,
	}
}

func writeSources(t *testing.T, urls ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte(strings.Join(urls, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write sources: %v", err)
	}
	return path
}

func entry(url, title string) feed.Entry {
	return feed.Entry{Link: url, Title: title, Excerpt: "About " + title, Source: "Test Source", FeedURL: "https://feeds.example.com/rss"}
}

type fakeFeeds struct {
	entries map[string][]feed.Entry
	errs    map[string]error
	onFetch func()
}

func (f *fakeFeeds) Fetch(ctx context.Context, url string) ([]feed.Entry, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	return f.entries[url], nil
}

// fakeClassifier marks items relevant unless their title contains "stocks".
type fakeClassifier struct {
	panics bool
}

func (c fakeClassifier) IsRelevant(ctx context.Context, item database.Item) bool {
	if c.panics {
		panic("classifier exploded")
	}
	return !strings.Contains(strings.ToLower(item.Title), "stocks")
}

type fakeRetriever struct {
	bodies map[string]string
	calls  []string
}

func (r *fakeRetriever) FetchBody(ctx context.Context, url string) (string, bool) {
	r.calls = append(r.calls, url)
	body, ok := r.bodies[url]
	return body, ok
}

// fakeTranslator prefixes titles and reuses the excerpt as summary. Titles
// listed in fail return an error.
type fakeTranslator struct {
	fail      map[string]bool
	summaries map[string]string
}

func (tr *fakeTranslator) Translate(ctx context.Context, item database.Item) (feed.Translation, error) {
	if tr.fail[item.Title] {
		return feed.Translation{}, errors.New("translation service unavailable")
	}
	summary := item.Excerpt
	if s, ok := tr.summaries[item.Title]; ok {
		summary = s
	}
	return feed.Translation{Title: "T: " + item.Title, Summary: summary}, nil
}

type sentMessage struct {
	to   string
	text string
}

type fakeSender struct {
	name     string
	audience notify.Audience
	fail     bool

	mu   sync.Mutex
	sent []sentMessage
}

func (s *fakeSender) Name() string              { return s.name }
func (s *fakeSender) Audience() notify.Audience { return s.audience }
func (s *fakeSender) MaxLength() int            { return 0 }

func (s *fakeSender) Send(ctx context.Context, to, text string) error {
	if s.fail {
		return errors.New("channel unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{to: to, text: text})
	return nil
}

func (s *fakeSender) messagesTo(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var texts []string
	for _, m := range s.sent {
		if m.to == to {
			texts = append(texts, m.text)
		}
	}
	return texts
}

type fakeAlerter struct {
	errs  []string
	calls int
	err   error
}

func (a *fakeAlerter) Alert(ctx context.Context, errs []string) error {
	a.calls++
	a.errs = errs
	return a.err
}

func countStatus(records []database.DispatchRecord, status database.DispatchStatus) int {
	n := 0
	for _, r := range records {
		if r.Status == status {
			n++
		}
	}
	return n
}
