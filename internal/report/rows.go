package report

import (
	"time"

	"contahogar/internal/core"
)

// DateLayout is the export date format written to every row.
const DateLayout = "2006-01-02"

// Header is the spreadsheet header row; it names the ExportRow fields in order.
var Header = []string{"Persona", "Arriendo", "Servicios", "Internet", "Aseo", "Total", "Fecha"}

// ExportRow is one participant's charges stamped with the export date.
type ExportRow struct {
	Persona   string
	Arriendo  int64
	Servicios int64
	Internet  int64
	Aseo      int64
	Total     int64
	Fecha     string
}

// BuildRows returns one row per ledger entry, in ledger order, all sharing
// the date of now.
func BuildRows(l *core.Ledger, now time.Time) []ExportRow {
	date := now.Format(DateLayout)
	entries := l.Entries()
	rows := make([]ExportRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ExportRow{
			Persona:   e.Participant.Name,
			Arriendo:  e.Record.Base,
			Servicios: e.Record.Utilities,
			Internet:  e.Record.Internet,
			Aseo:      e.Record.Cleaning,
			Total:     e.Record.Total(),
			Fecha:     date,
		})
	}
	return rows
}

// Cells returns the row values in Header order.
func (r ExportRow) Cells() []any {
	return []any{r.Persona, r.Arriendo, r.Servicios, r.Internet, r.Aseo, r.Total, r.Fecha}
}

func headerCells() []any {
	out := make([]any, len(Header))
	for i, h := range Header {
		out[i] = h
	}
	return out
}
