package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hylla/animebridge/internal/app"
	"github.com/hylla/animebridge/internal/domain"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// defaultHistoryLimit caps ListConsumedReports when no limit is given.
const defaultHistoryLimit = 50

// Repository persists the state bag and consumed-report log.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ app.Repository = (*Repository)(nil)

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_bag (
			key TEXT PRIMARY KEY,
			value_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS consumed_reports (
			id TEXT PRIMARY KEY,
			consumed_at TEXT NOT NULL,
			new_entries INTEGER NOT NULL DEFAULT 0,
			updates INTEGER NOT NULL DEFAULT 0,
			summary_text TEXT NOT NULL DEFAULT '',
			report_json TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_consumed_reports_consumed_at ON consumed_reports(consumed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("migrate sqlite", err)
		}
	}
	return nil
}

// Load returns the stored values for keys. Absent keys are omitted.
func (r *Repository) Load(ctx context.Context, keys []string) (app.Bag, error) {
	out := app.Bag{}
	if len(keys) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		args = append(args, key)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT key, value_json FROM kv_bag WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, storageErr("load state", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, storageErr("scan state", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load state", err)
	}
	return out, nil
}

// Save upserts every key in one transaction. A nil or JSON null value deletes the key.
func (r *Repository) Save(ctx context.Context, bag app.Bag) error {
	if len(bag) == 0 {
		return nil
	}
	return r.withTx(ctx, "save", func(tx *sql.Tx) error {
		return r.saveBag(ctx, tx, bag)
	})
}

// Delete removes keys. Missing keys are ignored.
func (r *Repository) Delete(ctx context.Context, keys []string) error {
	bag := make(app.Bag, len(keys))
	for _, key := range keys {
		bag[key] = nil
	}
	return r.Save(ctx, bag)
}

// CommitReport applies bag and records report in one transaction, so either
// both land or neither does.
func (r *Repository) CommitReport(ctx context.Context, bag app.Bag, report domain.ConsumedReport) error {
	return r.withTx(ctx, "commit report", func(tx *sql.Tx) error {
		if err := r.saveBag(ctx, tx, bag); err != nil {
			return err
		}
		return insertConsumedReport(ctx, tx, report)
	})
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (r *Repository) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin "+op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageErr("commit "+op, err)
	}
	return nil
}

// saveBag upserts or deletes each bag key on tx.
func (r *Repository) saveBag(ctx context.Context, tx *sql.Tx, bag app.Bag) error {
	updatedAt := ts(r.now())
	for key, value := range bag {
		if isNull(value) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv_bag WHERE key = ?`, key); err != nil {
				return storageErr("delete "+key, err)
			}
			continue
		}
		if !json.Valid(value) {
			return fmt.Errorf("%w: value for %q is not valid json", domain.ErrValidation, key)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv_bag(key, value_json, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
		`, key, string(value), updatedAt)
		if err != nil {
			return storageErr("save "+key, err)
		}
	}
	return nil
}

// insertConsumedReport appends one log row on tx. A repeated id is ignored.
func insertConsumedReport(ctx context.Context, tx *sql.Tx, report domain.ConsumedReport) error {
	reportJSON, err := json.Marshal(report.Report)
	if err != nil {
		return fmt.Errorf("encode consumed report: %w", err)
	}
	id := report.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO consumed_reports(id, consumed_at, new_entries, updates, summary_text, report_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		ts(report.ConsumedAt),
		report.NewEntries,
		report.Updates,
		report.SummaryText,
		string(reportJSON),
	)
	if err != nil {
		return storageErr("insert consumed report", err)
	}
	return nil
}

// ListConsumedReports lists consumed reports, newest first.
func (r *Repository) ListConsumedReports(ctx context.Context, limit int) ([]domain.ConsumedReport, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, consumed_at, new_entries, updates, summary_text, report_json
		FROM consumed_reports
		ORDER BY consumed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("list consumed reports", err)
	}
	defer rows.Close()

	out := make([]domain.ConsumedReport, 0)
	for rows.Next() {
		var (
			report      domain.ConsumedReport
			consumedRaw string
			reportRaw   string
		)
		if err := rows.Scan(&report.ID, &consumedRaw, &report.NewEntries, &report.Updates, &report.SummaryText, &reportRaw); err != nil {
			return nil, storageErr("scan consumed report", err)
		}
		report.ConsumedAt = parseTS(consumedRaw)
		if strings.TrimSpace(reportRaw) != "" {
			if err := json.Unmarshal([]byte(reportRaw), &report.Report); err != nil {
				return nil, fmt.Errorf("decode consumed_reports.report_json: %w", err)
			}
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list consumed reports", err)
	}
	return out, nil
}

// storageErr tags backend failures with domain.ErrStorage.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorage, err))
}

// isNull reports whether a bag value requests deletion.
func isNull(v json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(v))
	return trimmed == "" || trimmed == "null"
}

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
