package sheets

import "context"

// Ports for outbound spreadsheet adapters.
type (
	// Sheet is an open worksheet. Rows are only ever appended.
	Sheet interface {
		// FirstCell returns the value of the top-left cell, or "" when the
		// worksheet has never been written.
		FirstCell(ctx context.Context) (string, error)
		// AppendRows writes rows after the last non-empty row.
		AppendRows(ctx context.Context, rows [][]any) error
	}

	// Connector opens a worksheet for the duration of a single operation.
	Connector interface {
		Connect(ctx context.Context) (Sheet, error)
	}
)
