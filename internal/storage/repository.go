package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "contahogar/internal/log"
	"contahogar/internal/sheets"

	_ "modernc.org/sqlite"
)

// Row sync states.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusError   = "error"
)

// SQLiteRepository is a local worksheet backed by a sqlite table. Every
// appended row is journaled as pending until a sync worker mirrors it.
type SQLiteRepository struct {
	db *sql.DB
}

// StoredRow is a journaled row waiting to be mirrored.
type StoredRow struct {
	ID        int64
	Cells     []any
	CreatedAt time.Time
}

var (
	_ sheets.Connector = (*SQLiteRepository)(nil)
	_ sheets.Sheet     = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under concurrent exports.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Connect checks the database and returns the repository as the worksheet.
func (r *SQLiteRepository) Connect(ctx context.Context) (sheets.Sheet, error) {
	if err := r.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return r, nil
}

// FirstCell returns the first cell of the earliest journaled row.
func (r *SQLiteRepository) FirstCell(ctx context.Context) (string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT cells FROM sheet_rows ORDER BY id LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read first row: %w", err)
	}
	cells, err := decodeCells(raw)
	if err != nil {
		return "", err
	}
	if len(cells) == 0 || cells[0] == nil {
		return "", nil
	}
	return strings.TrimSpace(fmt.Sprint(cells[0])), nil
}

// AppendRows journals rows one insert at a time. A failed insert leaves
// earlier rows of the same call in place, like a remote sheet would.
func (r *SQLiteRepository) AppendRows(ctx context.Context, rows [][]any) error {
	for i, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := r.db.ExecContext(ctx, `INSERT INTO sheet_rows (cells) VALUES (?)`, string(raw)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	slog.InfoContext(ctx, "Rows saved to SQLite", applog.FieldComponent, applog.ComponentStorage, applog.FieldRows, len(rows))
	return nil
}

// PendingRows returns up to limit rows not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingRows(ctx context.Context, limit int) ([]StoredRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cells, created_at FROM sheet_rows WHERE sync_status = ? ORDER BY id LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending rows: %w", err)
	}
	defer rows.Close()

	var out []StoredRow
	for rows.Next() {
		var (
			row StoredRow
			raw string
		)
		if err := rows.Scan(&row.ID, &raw, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		if row.Cells, err = decodeCells(raw); err != nil {
			return nil, fmt.Errorf("row %d: %w", row.ID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending rows: %w", err)
	}
	return out, nil
}

// MarkSynced marks rows as mirrored to the remote sheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, ids ...int64) error {
	if err := r.setStatus(ctx, StatusSynced, ids); err != nil {
		return fmt.Errorf("mark rows synced: %w", err)
	}
	slog.InfoContext(ctx, "Rows marked as synced", applog.FieldComponent, applog.ComponentStorage, applog.FieldRows, len(ids))
	return nil
}

// MarkSyncError parks rows that cannot be mirrored so they stop blocking the queue.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, ids ...int64) error {
	if err := r.setStatus(ctx, StatusError, ids); err != nil {
		return fmt.Errorf("mark rows sync error: %w", err)
	}
	slog.WarnContext(ctx, "Rows marked with sync error", applog.FieldComponent, applog.ComponentStorage, "ids", ids)
	return nil
}

// RequeueErrored moves parked rows back to pending and returns how many moved.
func (r *SQLiteRepository) RequeueErrored(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sheet_rows SET sync_status = ? WHERE sync_status = ?`, StatusPending, StatusError)
	if err != nil {
		return 0, fmt.Errorf("requeue errored rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue errored rows: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Errored rows requeued", applog.FieldComponent, applog.ComponentStorage, applog.FieldRows, n)
	}
	return n, nil
}

// CountByStatus returns how many rows are in the given sync state.
func (r *SQLiteRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sheet_rows WHERE sync_status = ?`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s rows: %w", status, err)
	}
	return n, nil
}

func (r *SQLiteRepository) setStatus(ctx context.Context, status string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE sheet_rows SET sync_status = ?, synced_at = CASE WHEN ? = 'synced' THEN CURRENT_TIMESTAMP ELSE synced_at END WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, status, status, id); err != nil {
			return fmt.Errorf("row %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// decodeCells restores a JSON row; whole numbers come back as int64.
func decodeCells(raw string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var cells []any
	if err := dec.Decode(&cells); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	for i, c := range cells {
		n, ok := c.(json.Number)
		if !ok {
			continue
		}
		if v, err := n.Int64(); err == nil {
			cells[i] = v
		} else if f, err := n.Float64(); err == nil {
			cells[i] = f
		}
	}
	return cells, nil
}
