package api

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestBot_Reply(t *testing.T) {
	env := setupTestEnv(t)
	bot := NewBot(env.recipients, env.sender)
	ctx := context.Background()

	steps := []struct {
		text     string
		contains string
	}{
		{"/keywords", "subscribe with /start first"},
		{"/stop", "not subscribed"},
		{"/start", "Welcome to PaleoDigest"},
		{"/start", "already subscribed"},
		{"/keywords", "Current setting: all news"},
		{"/keywords Mammoth trilobite", "Keywords set: Mammoth, trilobite"},
		{"/keywords", "Current keywords: Mammoth, trilobite"},
		{"/keywords *", "receive all news"},
		{"/stop", "unsubscribed"},
		{"/start@PaleoDigestBot", "active again"},
		{"/help", "/keywords * - receive everything"},
		{"/dance", "Unknown command"},
	}

	for _, step := range steps {
		got, err := bot.Reply(ctx, "777", "Mary", step.text)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", step.text, err)
		}
		if !strings.Contains(got, step.contains) {
			t.Errorf("%s: expected reply containing %q, got %q", step.text, step.contains, got)
		}
	}

	recipient, err := env.recipients.GetByExternalID(ctx, "777")
	if err != nil || recipient == nil {
		t.Fatalf("Expected recipient, got %v, %v", recipient, err)
	}
	if !recipient.IsActive {
		t.Error("Expected recipient to be active after /start")
	}
	if recipient.KeywordFilter != nil {
		t.Errorf("Expected filter reset to all, got %v", recipient.KeywordFilter)
	}
}

func TestBot_KeywordsStored(t *testing.T) {
	env := setupTestEnv(t)
	bot := NewBot(env.recipients, env.sender)
	ctx := context.Background()

	if _, err := bot.Reply(ctx, "1", "", "/start"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := bot.Reply(ctx, "1", "", "/keywords fossil amber"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	recipient, _ := env.recipients.GetByExternalID(ctx, "1")
	if !reflect.DeepEqual(recipient.KeywordFilter, []string{"fossil", "amber"}) {
		t.Errorf("Expected stored keywords, got %v", recipient.KeywordFilter)
	}
}

func TestBot_KeywordsEmptyFilter(t *testing.T) {
	env := setupTestEnv(t)
	bot := NewBot(env.recipients, env.sender)
	ctx := context.Background()

	id, err := env.recipients.Add(ctx, "5", "", false)
	if err != nil {
		t.Fatalf("Failed to add recipient: %v", err)
	}
	if err := env.recipients.SetKeywordFilter(ctx, id, []string{}); err != nil {
		t.Fatalf("Failed to set keyword filter: %v", err)
	}

	got, err := bot.Reply(ctx, "5", "", "/keywords")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(got, "Current keywords: none (receiving nothing)") {
		t.Errorf("Expected empty filter to be described, got %q", got)
	}
}

func TestBot_HandleUpdateIgnoresPlainText(t *testing.T) {
	env := setupTestEnv(t)
	bot := NewBot(env.recipients, env.sender)

	if err := bot.HandleUpdate(context.Background(), Update{Message: &Message{Text: "hello", Chat: Chat{ID: 1}}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := bot.HandleUpdate(context.Background(), Update{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(env.sender.replies) != 0 {
		t.Errorf("Expected no replies, got %d", len(env.sender.replies))
	}
}
