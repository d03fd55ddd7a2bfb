package services

import (
	"context"
	"log/slog"

	applog "contahogar/internal/log"
	"contahogar/internal/sheets"
)

// Publisher announces journaled rows to the sync worker.
type Publisher interface {
	PublishRowsAppended(ctx context.Context, rows int) error
}

// SheetService writes to a local sheet and notifies the sync worker after
// every successful append.
type SheetService struct {
	local     sheets.Connector
	publisher Publisher
}

var _ sheets.Connector = (*SheetService)(nil)

// NewSheetService wraps local. A nil publisher disables notifications.
func NewSheetService(local sheets.Connector, publisher Publisher) *SheetService {
	return &SheetService{
		local:     local,
		publisher: publisher,
	}
}

func (s *SheetService) Connect(ctx context.Context) (sheets.Sheet, error) {
	sheet, err := s.local.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &notifyingSheet{Sheet: sheet, publisher: s.publisher}, nil
}

type notifyingSheet struct {
	sheets.Sheet
	publisher Publisher
}

func (n *notifyingSheet) AppendRows(ctx context.Context, rows [][]any) error {
	if err := n.Sheet.AppendRows(ctx, rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	if n.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping rows appended message", applog.FieldComponent, applog.ComponentStorage)
		return nil
	}
	// Rows are saved locally; the worker's poller picks them up if this is lost.
	if err := n.publisher.PublishRowsAppended(ctx, len(rows)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish rows appended message", applog.FieldComponent, applog.ComponentStorage, applog.FieldRows, len(rows), applog.FieldError, err)
	}
	return nil
}
