package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/paleo-digest/app/cfg"
	"github.com/lysyi3m/paleo-digest/app/database"
)

const testAPIKey = "test-key"

type testEnv struct {
	items      *database.ItemRepository
	recipients *database.RecipientRepository
	runs       *database.RunRepository
	sender     *fakeSender
	scheduler  *fakeScheduler
	router     *gin.Engine
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg.Set(&cfg.Cfg{Port: "8080", Version: "test"})
	t.Cleanup(func() { cfg.Set(nil) })

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrator := database.NewMigrator(db, []string{"telegram"})
	if err := migrator.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	env := &testEnv{
		items:      database.NewItemRepository(db),
		recipients: database.NewRecipientRepository(db, migrator),
		runs:       database.NewRunRepository(db),
		sender:     &fakeSender{},
		scheduler:  &fakeScheduler{},
	}

	bot := NewBot(env.recipients, env.sender)
	handler := NewHandler(env.items, env.recipients, env.runs, env.scheduler, bot)
	env.router = NewServer(handler, testAPIKey, "webhook-secret")

	return env
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) api(method, path, body string) *httptest.ResponseRecorder {
	return e.do(method, path, body, map[string]string{"X-API-Key": testAPIKey})
}

type reply struct {
	to   string
	text string
}

type fakeSender struct {
	mu      sync.Mutex
	replies []reply
}

func (s *fakeSender) Send(ctx context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{to: to, text: text})
	return nil
}

func (s *fakeSender) last() reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return reply{}
	}
	return s.replies[len(s.replies)-1]
}

type fakeScheduler struct {
	triggers int
	err      error
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) Trigger() error {
	if s.err != nil {
		return s.err
	}
	s.triggers++
	return nil
}
