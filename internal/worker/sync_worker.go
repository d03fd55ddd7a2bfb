package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"contahogar/internal/amqp"
	applog "contahogar/internal/log"
	"contahogar/internal/report"
	"contahogar/internal/sheets"
	"contahogar/internal/storage"

	"google.golang.org/api/googleapi"
)

// Journal is the local row store the worker drains.
type Journal interface {
	PendingRows(ctx context.Context, limit int) ([]storage.StoredRow, error)
	MarkSynced(ctx context.Context, ids ...int64) error
	MarkSyncError(ctx context.Context, ids ...int64) error
	RequeueErrored(ctx context.Context) (int64, error)
}

// SyncWorker mirrors journaled sheet rows to a remote worksheet.
type SyncWorker struct {
	journal   Journal
	target    sheets.Connector
	batchSize int

	// Serializes drains so the consumer and the poller never append the same rows twice.
	mu sync.Mutex
}

func NewSyncWorker(journal Journal, target sheets.Connector, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		journal:   journal,
		target:    target,
		batchSize: batchSize,
	}
}

// HandleRowsAppended drains the journal after a notification. A returned
// error requeues the message.
func (w *SyncWorker) HandleRowsAppended(ctx context.Context, msg *amqp.RowsAppendedMessage) error {
	slog.InfoContext(ctx, "Processing rows appended message", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpSync,
		applog.FieldRows, msg.Rows,
		"published_at", msg.Timestamp)

	if _, err := w.SyncPending(ctx); err != nil {
		return fmt.Errorf("sync pending rows: %w", err)
	}
	return nil
}

// SyncPending mirrors every pending row in batches, oldest first, and
// returns how many rows were marked synced. Rows are marked only after the
// remote append succeeds.
func (w *SyncWorker) SyncPending(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		sheet  sheets.Sheet
		synced int
	)
	for {
		pending, err := w.journal.PendingRows(ctx, w.batchSize)
		if err != nil {
			return synced, fmt.Errorf("get pending rows: %w", err)
		}
		if len(pending) == 0 {
			return synced, nil
		}

		if sheet == nil {
			if sheet, err = w.target.Connect(ctx); err != nil {
				return synced, fmt.Errorf("connect target sheet: %w", err)
			}
		}

		n, err := w.syncBatch(ctx, sheet, pending)
		synced += n
		if err != nil {
			return synced, err
		}
		if len(pending) < w.batchSize {
			return synced, nil
		}
	}
}

func (w *SyncWorker) syncBatch(ctx context.Context, sheet sheets.Sheet, pending []storage.StoredRow) (int, error) {
	first, err := sheet.FirstCell(ctx)
	if err != nil {
		return 0, fmt.Errorf("read target header: %w", err)
	}
	hasContent := first != ""

	ids := make([]int64, 0, len(pending))
	values := make([][]any, 0, len(pending))
	for _, row := range pending {
		ids = append(ids, row.ID)
		// The remote sheet keeps a single header row.
		if isHeader(row.Cells) {
			if hasContent {
				continue
			}
			hasContent = true
		}
		values = append(values, row.Cells)
	}

	if err := sheet.AppendRows(ctx, values); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
			// The remote rejected the data itself; retrying cannot help.
			if markErr := w.journal.MarkSyncError(ctx, ids...); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpSync, "ids", ids, applog.FieldError, markErr)
			}
		}
		return 0, fmt.Errorf("append to target sheet: %w", err)
	}

	if err := w.journal.MarkSynced(ctx, ids...); err != nil {
		return 0, fmt.Errorf("mark rows synced: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored journal batch", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpSync,
		applog.FieldRows, len(ids),
		"appended", len(values),
		"first_id", ids[0],
		"last_id", ids[len(ids)-1])
	return len(ids), nil
}

// StartupSyncCheck gives rows parked by an earlier run another chance and
// drains anything left over from missed messages or downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if requeued, err := w.journal.RequeueErrored(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	} else if requeued > 0 {
		slog.InfoContext(ctx, "Retrying rows parked by an earlier run", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpStartup, "requeued", requeued)
	}

	n, err := w.SyncPending(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "No pending rows found on startup", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpStartup)
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpStartup, "synced", n)
	return nil
}

// Poll drains the journal every interval until ctx ends. It backs up the
// message path when notifications are lost.
func (w *SyncWorker) Poll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := w.SyncPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpSync, applog.FieldError, err, "synced", n)
			} else if n > 0 {
				slog.InfoContext(ctx, "Periodic sync mirrored rows", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpSync, "synced", n)
			}
		}
	}
}

func isHeader(cells []any) bool {
	if len(cells) != len(report.Header) {
		return false
	}
	for i, h := range report.Header {
		if s, ok := cells[i].(string); !ok || s != h {
			return false
		}
	}
	return true
}
