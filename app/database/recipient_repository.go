package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lysyi3m/paleo-digest/app/match"
)

const recipientColumns = `id, external_id, COALESCE(display_name, ''), is_active, is_admin,
	keyword_filter, COALESCE(created_at, ''), COALESCE(updated_at, '')`

type RecipientRepository struct {
	db       *DB
	backfill LegacyBackfiller
}

// NewRecipientRepository creates a registry. backfill may be nil when no
// legacy ledger needs to be adopted by the first admin.
func NewRecipientRepository(db *DB, backfill LegacyBackfiller) *RecipientRepository {
	return &RecipientRepository{db: db, backfill: backfill}
}

var _ RecipientRegistry = (*RecipientRepository)(nil)

func (r *RecipientRepository) Add(ctx context.Context, externalID, displayName string, isAdmin bool) (int64, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return 0, fmt.Errorf("external id is empty")
	}

	existing, err := r.GetByExternalID(ctx, externalID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateRecipient, externalID)
	}

	return r.insert(ctx, externalID, displayName, isAdmin)
}

func (r *RecipientRepository) insert(ctx context.Context, externalID, displayName string, isAdmin bool) (int64, error) {
	now := formatTime(time.Now())
	res, err := r.db.execWrite(ctx, `
		INSERT INTO recipients (external_id, display_name, is_active, is_admin, keyword_filter, created_at, updated_at)
		VALUES (?, ?, 1, ?, NULL, ?, ?)`,
		externalID, nullableString(displayName), boolToInt(isAdmin), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateRecipient, externalID)
		}
		return 0, fmt.Errorf("failed to add recipient: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read recipient id: %w", err)
	}
	return id, nil
}

func (r *RecipientRepository) GetByExternalID(ctx context.Context, externalID string) (*Recipient, error) {
	return r.getOne(ctx, `SELECT `+recipientColumns+` FROM recipients WHERE external_id = ?`, externalID)
}

func (r *RecipientRepository) GetByID(ctx context.Context, id int64) (*Recipient, error) {
	return r.getOne(ctx, `SELECT `+recipientColumns+` FROM recipients WHERE id = ?`, id)
}

func (r *RecipientRepository) GetAll(ctx context.Context) ([]Recipient, error) {
	return r.query(ctx, `SELECT `+recipientColumns+` FROM recipients ORDER BY id`)
}

func (r *RecipientRepository) GetActive(ctx context.Context) ([]Recipient, error) {
	return r.query(ctx, `SELECT `+recipientColumns+` FROM recipients WHERE is_active = 1 ORDER BY id`)
}

func (r *RecipientRepository) GetActiveAdmins(ctx context.Context) ([]Recipient, error) {
	return r.query(ctx, `SELECT `+recipientColumns+` FROM recipients
		WHERE is_active = 1 AND is_admin = 1 ORDER BY id`)
}

func (r *RecipientRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, "set recipient active", id, map[string]any{"is_active": boolToInt(active)})
}

// Remove deletes the recipient row. Its ledger rows stay in place.
func (r *RecipientRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.db.execWrite(ctx, `DELETE FROM recipients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove recipient: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRecipientNotFound, id)
	}
	return nil
}

// SetKeywordFilter stores the filter. nil means "everything"; blank keywords
// are dropped, so a list of blanks becomes the empty "nothing" filter.
func (r *RecipientRepository) SetKeywordFilter(ctx context.Context, id int64, keywords []string) error {
	var value any
	if keywords != nil {
		cleaned := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				cleaned = append(cleaned, kw)
			}
		}
		data, err := json.Marshal(cleaned)
		if err != nil {
			return fmt.Errorf("failed to encode keyword filter: %w", err)
		}
		value = string(data)
	}

	return r.update(ctx, "set keyword filter", id, map[string]any{"keyword_filter": value})
}

func (r *RecipientRepository) GetKeywordFilter(ctx context.Context, id int64) ([]string, error) {
	recipient, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: %d", ErrRecipientNotFound, id)
	}
	return recipient.KeywordFilter, nil
}

// SeedAdmin makes externalID an admin. An existing recipient only has its
// admin flag raised. A newly created admin adopts the legacy broadcast
// ledger through the backfill.
func (r *RecipientRepository) SeedAdmin(ctx context.Context, externalID, displayName string) (int64, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return 0, fmt.Errorf("external id is empty")
	}

	existing, err := r.GetByExternalID(ctx, externalID)
	if err != nil {
		return 0, err
	}

	if existing != nil {
		if !existing.IsAdmin {
			if err := r.update(ctx, "promote admin", existing.ID, map[string]any{"is_admin": 1}); err != nil {
				return 0, err
			}
			slog.Info("Recipient promoted to admin", "recipient_id", existing.ID)
		}
		return existing.ID, nil
	}

	id, err := r.insert(ctx, externalID, displayName, true)
	if err != nil {
		return 0, err
	}
	slog.Info("Admin recipient created", "recipient_id", id)

	if r.backfill != nil {
		if _, err := r.backfill.BackfillLegacyDispatches(ctx, id); err != nil {
			return id, err
		}
	}

	return id, nil
}

func (r *RecipientRepository) Matches(text string, keywords []string) bool {
	return match.Keywords(text, keywords)
}

func (r *RecipientRepository) update(ctx context.Context, op string, id int64, set map[string]any) error {
	query, args, err := sq.Update("recipients").
		SetMap(set).
		Set("updated_at", formatTime(time.Now())).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}

	res, err := r.db.execWrite(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRecipientNotFound, id)
	}
	return nil
}

func (r *RecipientRepository) getOne(ctx context.Context, query string, args ...any) (*Recipient, error) {
	recipients, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}
	return &recipients[0], nil
}

func (r *RecipientRepository) query(ctx context.Context, query string, args ...any) ([]Recipient, error) {
	rows, err := r.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var (
			rec       Recipient
			isActive  int
			isAdmin   int
			keywords  sql.NullString
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.ExternalID, &rec.DisplayName, &isActive, &isAdmin,
			&keywords, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipient row: %w", err)
		}

		rec.IsActive = isActive != 0
		rec.IsAdmin = isAdmin != 0
		rec.CreatedAt = parseTime(createdAt)
		rec.UpdatedAt = parseTime(updatedAt)

		if keywords.Valid && keywords.String != "null" {
			filter := []string{}
			if err := json.Unmarshal([]byte(keywords.String), &filter); err != nil {
				return nil, fmt.Errorf("failed to decode keyword filter for recipient %d: %w", rec.ID, err)
			}
			if filter == nil {
				filter = []string{}
			}
			rec.KeywordFilter = filter
		}

		recipients = append(recipients, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient rows: %w", err)
	}
	return recipients, nil
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
