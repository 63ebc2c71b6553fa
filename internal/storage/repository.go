package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

// Sync status values for the export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// DefaultQueryTimeout bounds read statements executed on behalf of the
// question and direct-SQL endpoints.
const DefaultQueryTimeout = 5 * time.Second

type SQLiteRepository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// QueryResult carries rows from an arbitrary read statement in column order.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// QueryRecord is one entry of the natural-language query history.
type QueryRecord struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	Shape      string    `json:"shape"`
	SQL        string    `json:"sql"`
	DurationMS int64     `json:"duration_ms"`
	AskedAt    time.Time `json:"asked_at"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applySchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:           db,
		queryTimeout: DefaultQueryTimeout,
	}, nil
}

// SetQueryTimeout overrides the statement timeout used by ExecuteRead.
func (r *SQLiteRepository) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		r.queryTimeout = d
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertExpense stores a validated expense and returns its row id.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, amount, category, subcategory, note) VALUES (?, ?, ?, ?, ?)`,
		e.Date.String(), e.Amount.Float64(), e.Category, e.Subcategory, e.Note)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"date", e.Date.String(),
		"amount", e.Amount.Float64(),
		"category", e.Category)

	return id, nil
}

// GetExpense retrieves a single expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, amount, category, subcategory, note FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// ListExpenses returns expenses within the date range, oldest first. Either
// bound may be absent.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, dr core.DateRange) ([]core.Expense, error) {
	query := `SELECT id, date, amount, category, subcategory, note FROM expenses`
	var conds []string
	var args []any
	if !dr.Start.IsEmpty() {
		conds = append(conds, "date >= ?")
		args = append(args, dr.Start.String())
	}
	if !dr.End.IsEmpty() {
		conds = append(conds, "date <= ?")
		args = append(args, dr.End.String())
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// SummarizeByCategory aggregates totals per category within the date range.
// When category is non-empty only that category is summarized.
func (r *SQLiteRepository) SummarizeByCategory(ctx context.Context, dr core.DateRange, category string) ([]core.CategorySummary, error) {
	query := `SELECT category, SUM(amount), COUNT(*) FROM expenses`
	var conds []string
	var args []any
	if !dr.Start.IsEmpty() {
		conds = append(conds, "date >= ?")
		args = append(args, dr.Start.String())
	}
	if !dr.End.IsEmpty() {
		conds = append(conds, "date <= ?")
		args = append(args, dr.End.String())
	}
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " GROUP BY category ORDER BY SUM(amount) DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategorySummary
	for rows.Next() {
		var s core.CategorySummary
		var total float64
		if err := rows.Scan(&s.Category, &total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		s.Total = core.MoneyFromFloat(total)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarize by category: %w", err)
	}
	return out, nil
}

// ExecuteRead runs an already-validated read statement with bound arguments
// under the repository's statement timeout. It returns rows generically in
// column order so callers can serialize any shape of result.
func (r *SQLiteRepository) ExecuteRead(ctx context.Context, query string, args []any) (*QueryResult, error) {
	cctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(cctx, query, args...)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("execute read: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("execute read: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		for i, v := range values {
			// Byte slices do not serialize as text; convert for transport.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("execute read: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("execute read: %w", err)
	}
	return result, nil
}

// RecordQuery appends one entry to the natural-language query history.
func (r *SQLiteRepository) RecordQuery(ctx context.Context, rec QueryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_history (question, shape, sql_text, duration_ms) VALUES (?, ?, ?, ?)`,
		rec.Question, rec.Shape, rec.SQL, rec.DurationMS)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// RecentQueries returns the latest history entries, newest first.
func (r *SQLiteRepository) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, question, shape, sql_text, duration_ms, asked_at FROM query_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	defer rows.Close()

	var out []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Shape, &rec.SQL, &rec.DurationMS, &rec.AskedAt); err != nil {
			return nil, fmt.Errorf("scan query record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	return out, nil
}

// PendingSyncExpenses returns expenses not yet exported, oldest first.
func (r *SQLiteRepository) PendingSyncExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, amount, category, subcategory, note FROM expenses WHERE sync_status = ? ORDER BY id ASC LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending sync expenses: %w", err)
	}
	return out, nil
}

// MarkSynced marks an expense as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, SyncDone); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an expense as having failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, SyncError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE expenses SET sync_status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("set sync status %s: %w", status, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var date string
	var amount float64
	if err := row.Scan(&e.ID, &date, &amount, &e.Category, &e.Subcategory, &e.Note); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d
	e.Amount = core.MoneyFromFloat(amount)
	return e, nil
}
