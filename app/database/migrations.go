package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type columnSpec struct {
	name string
	ddl  string
}

// expectedColumns lists every column that can be added in place. Columns that
// SQLite cannot add later (primary keys, unique keys) are created by the
// embedded migrations only.
var expectedColumns = map[string][]columnSpec{
	"items": {
		{"title", "TEXT NOT NULL DEFAULT ''"},
		{"excerpt", "TEXT NOT NULL DEFAULT ''"},
		{"source_name", "TEXT NOT NULL DEFAULT ''"},
		{"origin_feed", "TEXT NOT NULL DEFAULT ''"},
		{"published_at", "TEXT"},
		{"ingested_at", "TEXT NOT NULL DEFAULT ''"},
		{"relevance", "TEXT NOT NULL DEFAULT 'unknown'"},
		{"body", "TEXT"},
		{"translated_title", "TEXT"},
		{"translated_summary", "TEXT"},
	},
	"recipients": {
		{"display_name", "TEXT"},
		{"is_active", "INTEGER NOT NULL DEFAULT 1"},
		{"is_admin", "INTEGER NOT NULL DEFAULT 0"},
		{"keyword_filter", "TEXT"},
		{"created_at", "TEXT NOT NULL DEFAULT ''"},
		{"updated_at", "TEXT NOT NULL DEFAULT ''"},
	},
	"dispatch_records": {
		{"sent_at", "TEXT NOT NULL DEFAULT ''"},
		{"recipient_id", "INTEGER"},
	},
	"pipeline_runs": {
		{"run_key", "TEXT NOT NULL DEFAULT ''"},
		{"started_at", "TEXT NOT NULL DEFAULT ''"},
		{"finished_at", "TEXT"},
		{"fetched", "INTEGER NOT NULL DEFAULT 0"},
		{"new_items", "INTEGER NOT NULL DEFAULT 0"},
		{"relevant", "INTEGER NOT NULL DEFAULT 0"},
		{"retrieved", "INTEGER NOT NULL DEFAULT 0"},
		{"translated", "INTEGER NOT NULL DEFAULT 0"},
		{"sent", "INTEGER NOT NULL DEFAULT 0"},
		{"errors", "TEXT"},
		{"status", "TEXT NOT NULL DEFAULT 'running'"},
	},
}

var tableOrder = []string{"items", "recipients", "dispatch_records", "pipeline_runs"}

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_items_relevance ON items(relevance)`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_records_lookup ON dispatch_records(channel, recipient_id, item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recipients_active ON recipients(is_active)`,
}

// Migrator brings a store from any earlier layout to the current one. It
// only ever adds tables, columns and indexes.
type Migrator struct {
	db             *DB
	legacyChannels []string
}

func NewMigrator(db *DB, legacyChannels []string) *Migrator {
	return &Migrator{db: db, legacyChannels: legacyChannels}
}

// EnsureSchema is safe to call any number of times.
func (m *Migrator) EnsureSchema(ctx context.Context) error {
	ctx = ensureContext(ctx)

	return m.db.write(ctx, func() error {
		version, dirty, err := m.runMigrations()
		if err != nil {
			return err
		}
		slog.Debug("Schema migrations applied", "version", version, "dirty", dirty)

		added, err := m.reconcileColumns(ctx)
		if err != nil {
			return err
		}
		if added > 0 {
			slog.Info("Schema columns added", "count", added)
		}

		for _, stmt := range indexStatements {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
		return nil
	})
}

// runMigrations applies embedded migrations and returns version info.
// The driver is not closed: closing it would close the shared handle.
func (m *Migrator) runMigrations() (uint, bool, error) {
	driver, err := sqlite.WithInstance(m.db.DB, &sqlite.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

func (m *Migrator) reconcileColumns(ctx context.Context) (int, error) {
	added := 0
	for _, table := range tableOrder {
		existing, err := m.tableColumns(ctx, table)
		if err != nil {
			return added, err
		}

		for _, col := range expectedColumns[table] {
			if existing[col.name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.ddl)
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return added, fmt.Errorf("failed to add column %s.%s: %w", table, col.name, err)
			}
			slog.Info("Schema column added", "table", table, "column", col.name)
			added++
		}
	}
	return added, nil
}

func (m *Migrator) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info for %s: %w", table, err)
		}
		columns[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table info for %s: %w", table, err)
	}
	return columns, nil
}

// TableColumns returns the sorted column names of a table.
func (m *Migrator) TableColumns(ctx context.Context, table string) ([]string, error) {
	cols, err := m.tableColumns(ensureContext(ctx), table)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// BackfillLegacyDispatches assigns broadcast success records on the legacy
// channels to recipientID. Rows that already reference a recipient are left
// alone, so repeated calls change nothing.
func (m *Migrator) BackfillLegacyDispatches(ctx context.Context, recipientID int64) (int64, error) {
	if len(m.legacyChannels) == 0 {
		return 0, nil
	}

	query, args, err := sq.Update("dispatch_records").
		Set("recipient_id", recipientID).
		Where(sq.Eq{
			"status":       string(DispatchSuccess),
			"recipient_id": nil,
			"channel":      m.legacyChannels,
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build backfill query: %w", err)
	}

	res, err := m.db.execWrite(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill legacy dispatches: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("Legacy dispatches backfilled", "recipient_id", recipientID, "rows", n)
	}
	return n, nil
}

var _ LegacyBackfiller = (*Migrator)(nil)
