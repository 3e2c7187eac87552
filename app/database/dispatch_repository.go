package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// settledStatuses permanently exclude an (item, channel, recipient) triple
// from the unsent set. Failed attempts do not.
var settledStatuses = []string{string(DispatchSuccess), string(DispatchFiltered)}

type DispatchRepository struct {
	db *DB
}

func NewDispatchRepository(db *DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

var _ DispatchLedger = (*DispatchRepository)(nil)

// UnsentBroadcast returns relevant, translated items with no settled record
// for the channel's broadcast audience.
func (r *DispatchRepository) UnsentBroadcast(ctx context.Context, channel string) ([]Item, error) {
	return r.unsent(ctx, channel, nil)
}

func (r *DispatchRepository) UnsentForRecipient(ctx context.Context, channel string, recipientID int64) ([]Item, error) {
	return r.unsent(ctx, channel, &recipientID)
}

func (r *DispatchRepository) unsent(ctx context.Context, channel string, recipientID *int64) ([]Item, error) {
	settled := sq.Select("item_id").
		From("dispatch_records").
		Where(sq.Eq{"channel": channel, "status": settledStatuses})
	if recipientID == nil {
		settled = settled.Where(sq.Eq{"recipient_id": nil})
	} else {
		settled = settled.Where(sq.Eq{"recipient_id": *recipientID})
	}

	settledSQL, settledArgs, err := settled.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build settled query: %w", err)
	}

	query, args, err := sq.Select(itemColumns).
		From("items").
		Where(sq.Eq{"relevance": string(RelevanceRelevant)}).
		Where(sq.NotEq{"translated_summary": nil}).
		Where("id NOT IN ("+settledSQL+")", settledArgs...).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build unsent query: %w", err)
	}

	return queryItems(ensureContext(ctx), r.db, query, args...)
}

// Record appends one ledger row. Existing rows are never touched.
func (r *DispatchRepository) Record(ctx context.Context, itemID int64, channel string, status DispatchStatus, recipientID *int64) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var recipient any
	if recipientID != nil {
		recipient = *recipientID
	}

	query, args, err := sq.Insert("dispatch_records").
		Columns("item_id", "channel", "status", "sent_at", "recipient_id").
		Values(itemID, channel, string(status), formatTime(time.Now()), recipient).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build dispatch insert: %w", err)
	}

	if _, err := r.db.execWrite(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// GetRecords lists ledger rows for a channel and audience in append order.
func (r *DispatchRepository) GetRecords(ctx context.Context, channel string, recipientID *int64) ([]DispatchRecord, error) {
	q := sq.Select("id", "item_id", "channel", "recipient_id", "status", "COALESCE(sent_at, '')").
		From("dispatch_records").
		Where(sq.Eq{"channel": channel}).
		OrderBy("id")
	if recipientID == nil {
		q = q.Where(sq.Eq{"recipient_id": nil})
	} else {
		q = q.Where(sq.Eq{"recipient_id": *recipientID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build records query: %w", err)
	}

	rows, err := r.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch records: %w", err)
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var (
			rec       DispatchRecord
			recipient sql.NullInt64
			status    string
			sentAt    string
		)
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.Channel, &recipient, &status, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch record: %w", err)
		}
		if recipient.Valid {
			id := recipient.Int64
			rec.RecipientID = &id
		}
		rec.Status = DispatchStatus(status)
		rec.SentAt = parseTime(sentAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispatch records: %w", err)
	}
	return records, nil
}

// CountDelivered returns the number of distinct items delivered successfully
// at least once on any channel.
func (r *DispatchRepository) CountDelivered(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(DISTINCT item_id) FROM dispatch_records WHERE status = ?`,
		string(DispatchSuccess)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count delivered items: %w", err)
	}
	return count, nil
}
