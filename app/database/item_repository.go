package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const itemColumns = `id, dedup_key, COALESCE(title, ''), COALESCE(excerpt, ''),
	COALESCE(source_name, ''), COALESCE(origin_feed, ''), published_at,
	COALESCE(ingested_at, ''), COALESCE(relevance, 'unknown'),
	body, translated_title, translated_summary`

type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

var _ ArticleStore = (*ItemRepository)(nil)

// InsertIfAbsent stores candidates whose dedup key is not yet known and
// returns how many rows were actually inserted.
func (r *ItemRepository) InsertIfAbsent(ctx context.Context, candidates []Item) (int, error) {
	now := time.Now().UTC()
	inserted := 0

	for _, item := range candidates {
		key := strings.TrimSpace(item.DedupKey)
		if key == "" {
			continue
		}

		ingestedAt := item.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = now
		}

		res, err := r.db.execWrite(ctx, `
			INSERT OR IGNORE INTO items (
				dedup_key, title, excerpt, source_name, origin_feed,
				published_at, ingested_at, relevance
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			key, item.Title, item.Excerpt, item.SourceName, item.OriginFeed,
			nullableTime(item.PublishedAt), formatTime(ingestedAt), string(RelevanceUnknown))
		if err != nil {
			return inserted, fmt.Errorf("failed to insert item %s: %w", key, err)
		}

		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	slog.Debug("Items stored", "candidates", len(candidates), "inserted", inserted)
	return inserted, nil
}

func (r *ItemRepository) SelectPendingClassification(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items
		WHERE relevance = ? ORDER BY id`, string(RelevanceUnknown))
}

// SetRelevance moves an item out of the unknown state. Writing the opposite
// value later overwrites the first one; unknown is never written.
func (r *ItemRepository) SetRelevance(ctx context.Context, id int64, value Relevance) error {
	if value != RelevanceRelevant && value != RelevanceIrrelevant {
		return fmt.Errorf("%w: %q", ErrInvalidRelevance, value)
	}
	return r.updateOne(ctx, "set relevance", id,
		`UPDATE items SET relevance = ? WHERE id = ?`, string(value), id)
}

// SelectPendingBody returns relevant items without a body in insertion
// order. A non-positive limit means no cap.
func (r *ItemRepository) SelectPendingBody(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items
		WHERE relevance = ? AND body IS NULL
		ORDER BY id LIMIT ?`, string(RelevanceRelevant), limit)
}

func (r *ItemRepository) SetBody(ctx context.Context, id int64, text string) error {
	return r.updateOne(ctx, "set body", id,
		`UPDATE items SET body = ? WHERE id = ?`, text, id)
}

func (r *ItemRepository) SelectPendingTranslation(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items
		WHERE relevance = ? AND translated_summary IS NULL
		ORDER BY id`, string(RelevanceRelevant))
}

// SetTranslation writes the translated title and summary in one statement.
func (r *ItemRepository) SetTranslation(ctx context.Context, id int64, title, summary string) error {
	return r.updateOne(ctx, "set translation", id,
		`UPDATE items SET translated_title = ?, translated_summary = ? WHERE id = ?`,
		title, summary, id)
}

func (r *ItemRepository) GetItem(ctx context.Context, id int64) (*Item, error) {
	items, err := r.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *ItemRepository) GetRecentTranslated(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items
		WHERE relevance = ? AND translated_summary IS NOT NULL
		ORDER BY id DESC LIMIT ?`, string(RelevanceRelevant), limit)
}

func (r *ItemRepository) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.db.QueryRowContext(ensureContext(ctx), `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN relevance = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN translated_summary IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM items`, string(RelevanceRelevant)).
		Scan(&stats.Total, &stats.Relevant, &stats.Translated)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get item stats: %w", err)
	}
	return stats, nil
}

func (r *ItemRepository) GetSourceStats(ctx context.Context) ([]SourceStats, error) {
	rows, err := r.db.QueryContext(ensureContext(ctx), `
		SELECT source_name,
		       COUNT(*) AS total,
		       SUM(CASE WHEN relevance = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN translated_summary IS NOT NULL THEN 1 ELSE 0 END)
		FROM items
		GROUP BY source_name
		ORDER BY total DESC, source_name`, string(RelevanceRelevant))
	if err != nil {
		return nil, fmt.Errorf("failed to get source stats: %w", err)
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var s SourceStats
		if err := rows.Scan(&s.Source, &s.Total, &s.Relevant, &s.Translated); err != nil {
			return nil, fmt.Errorf("failed to scan source stats row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source stats rows: %w", err)
	}
	return stats, nil
}

func (r *ItemRepository) updateOne(ctx context.Context, op string, id int64, query string, args ...any) error {
	res, err := r.db.execWrite(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to %s: %w: %d", op, ErrItemNotFound, id)
	}
	return nil
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	return queryItems(ensureContext(ctx), r.db, query, args...)
}

func queryItems(ctx context.Context, db *DB, query string, args ...any) ([]Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (Item, error) {
	var (
		item              Item
		publishedAt       sql.NullString
		ingestedAt        string
		relevance         string
		body              sql.NullString
		translatedTitle   sql.NullString
		translatedSummary sql.NullString
	)

	err := rows.Scan(
		&item.ID, &item.DedupKey, &item.Title, &item.Excerpt, &item.SourceName, &item.OriginFeed,
		&publishedAt, &ingestedAt, &relevance, &body, &translatedTitle, &translatedSummary,
	)
	if err != nil {
		return Item{}, fmt.Errorf("failed to scan item row: %w", err)
	}

	item.PublishedAt = parseNullTime(publishedAt)
	item.IngestedAt = parseTime(ingestedAt)
	item.Relevance = Relevance(relevance)
	item.Body = nullStringPtr(body)
	item.TranslatedTitle = nullStringPtr(translatedTitle)
	item.TranslatedSummary = nullStringPtr(translatedSummary)

	return item, nil
}
