package report

import (
	"context"
	"log/slog"
	"time"

	"contahogar/internal/core"
	applog "contahogar/internal/log"
	"contahogar/internal/sheets"
)

// ExportResult describes what one export call wrote.
type ExportResult struct {
	HeaderWritten bool
	Rows          int
}

// ExportRows appends the ledger to the worksheet opened by conn.
//
// A header row is written first when the sheet's first cell is empty. Data
// rows are always appended after existing content; earlier exports are never
// overwritten or deduplicated. The operation is not atomic: a header written
// before a failed row append stays in place.
func ExportRows(ctx context.Context, conn sheets.Connector, l *core.Ledger, now time.Time) (ExportResult, error) {
	var res ExportResult
	rows := BuildRows(l, now)

	sheet, err := conn.Connect(ctx)
	if err != nil {
		return res, wrap(ErrExportConnection, err)
	}

	first, err := sheet.FirstCell(ctx)
	if err != nil {
		return res, wrap(ErrExportConnection, err)
	}
	if first == "" {
		if err := sheet.AppendRows(ctx, [][]any{headerCells()}); err != nil {
			return res, wrap(ErrExportWrite, err)
		}
		res.HeaderWritten = true
	} else if first != Header[0] {
		// A foreign header is left as is; rows are appended under it.
		slog.WarnContext(ctx, "Existing sheet header differs from export schema", applog.FieldComponent, applog.ComponentReport, "first_cell", first, "expected", Header[0])
	}

	if len(rows) == 0 {
		return res, nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Cells()
	}
	if err := sheet.AppendRows(ctx, values); err != nil {
		return res, wrap(ErrExportWrite, err)
	}
	res.Rows = len(rows)

	slog.InfoContext(ctx, "Ledger exported", applog.FieldComponent, applog.ComponentReport,
		applog.FieldRows, res.Rows,
		"header_written", res.HeaderWritten,
		"date", now.Format(DateLayout))
	return res, nil
}
