package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/feed"
	"github.com/lysyi3m/paleo-digest/app/notify"
)

// DispatchTask sends briefings of unsent items over every configured channel
// and records each outcome in the ledger.
type DispatchTask struct {
	Task
	senders     []notify.Sender
	recipients  database.RecipientRegistry
	ledger      database.DispatchLedger
	adminChatID string
	now         func() time.Time
	counters    *database.RunCounters

	// Delivered counts success records written by this task.
	Delivered int
}

func NewDispatchTask(senders []notify.Sender, recipients database.RecipientRegistry, ledger database.DispatchLedger, adminChatID string, counters *database.RunCounters) *DispatchTask {
	return &DispatchTask{
		Task:        NewTask(TaskTypeDispatch),
		senders:     senders,
		recipients:  recipients,
		ledger:      ledger,
		adminChatID: adminChatID,
		now:         time.Now,
		counters:    counters,
	}
}

func (t *DispatchTask) Execute(ctx context.Context) error {
	if len(t.senders) == 0 {
		slog.Info("No channels enabled, nothing to send")
		return nil
	}

	var errs []error
	for _, sender := range t.senders {
		if err := t.dispatchChannel(ctx, sender); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sender.Name(), err))
		}
	}

	t.counters.Sent = t.Delivered

	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"channels", len(t.senders),
		"delivered", t.Delivered)

	return errors.Join(errs...)
}

func (t *DispatchTask) dispatchChannel(ctx context.Context, sender notify.Sender) error {
	if sender.Audience() == notify.Broadcast {
		return t.dispatchBroadcast(ctx, sender, "")
	}

	recipients, err := t.recipients.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recipients: %w", err)
	}

	if len(recipients) == 0 {
		if t.adminChatID == "" {
			slog.Info("No active recipients, skipping channel", "channel", sender.Name())
			return nil
		}
		slog.Debug("No recipients registered, sending to admin chat", "channel", sender.Name())
		return t.dispatchBroadcast(ctx, sender, t.adminChatID)
	}

	var errs []error
	for _, recipient := range recipients {
		if err := t.dispatchRecipient(ctx, sender, recipient); err != nil {
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipient.ExternalID, err))
		}
	}
	return errors.Join(errs...)
}

// dispatchBroadcast handles channels with a single implicit audience. Records
// carry no recipient.
func (t *DispatchTask) dispatchBroadcast(ctx context.Context, sender notify.Sender, to string) error {
	unsent, err := t.ledger.UnsentBroadcast(ctx, sender.Name())
	if err != nil {
		return fmt.Errorf("failed to select unsent items: %w", err)
	}
	if len(unsent) == 0 {
		return nil
	}

	status := t.send(ctx, sender, to, unsent)
	return t.record(ctx, sender.Name(), unsent, status, nil)
}

func (t *DispatchTask) dispatchRecipient(ctx context.Context, sender notify.Sender, recipient database.Recipient) error {
	unsent, err := t.ledger.UnsentForRecipient(ctx, sender.Name(), recipient.ID)
	if err != nil {
		return fmt.Errorf("failed to select unsent items: %w", err)
	}
	if len(unsent) == 0 {
		return nil
	}

	var matched, skipped []database.Item
	for _, item := range unsent {
		if t.matches(item, recipient.KeywordFilter) {
			matched = append(matched, item)
		} else {
			skipped = append(skipped, item)
		}
	}

	recipientID := recipient.ID

	if len(matched) > 0 {
		status := t.send(ctx, sender, recipient.ExternalID, matched)
		if err := t.record(ctx, sender.Name(), matched, status, &recipientID); err != nil {
			return err
		}
	}

	return t.record(ctx, sender.Name(), skipped, database.DispatchFiltered, &recipientID)
}

func (t *DispatchTask) matches(item database.Item, keywords []string) bool {
	return t.recipients.Matches(item.DisplayTitle(), keywords) ||
		t.recipients.Matches(item.DisplaySummary(), keywords)
}

func (t *DispatchTask) send(ctx context.Context, sender notify.Sender, to string, items []database.Item) database.DispatchStatus {
	briefing := feed.BuildBriefing(items, t.now())

	if err := notify.Deliver(ctx, sender, to, briefing); err != nil {
		slog.Warn("Failed to deliver briefing", "channel", sender.Name(), "to", to, "items", len(items), "error", err)
		return database.DispatchFailed
	}

	slog.Info("Briefing delivered", "channel", sender.Name(), "to", to, "items", len(items))
	return database.DispatchSuccess
}

func (t *DispatchTask) record(ctx context.Context, channel string, items []database.Item, status database.DispatchStatus, recipientID *int64) error {
	for _, item := range items {
		if err := t.ledger.Record(ctx, item.ID, channel, status, recipientID); err != nil {
			return fmt.Errorf("failed to record dispatch of item %d: %w", item.ID, err)
		}
		if status == database.DispatchSuccess {
			t.Delivered++
		}
	}
	return nil
}
