package core

// Totals holds the column sums across a ledger. It is derived on demand
// and never stored.
type Totals struct {
	Base      int64
	Utilities int64
	Internet  int64
	Cleaning  int64
	Total     int64
}

// ComputeTotals sums every column of the ledger. An empty ledger yields zeros.
func ComputeTotals(l *Ledger) Totals {
	var t Totals
	for _, e := range l.Entries() {
		t.Base += e.Record.Base
		t.Utilities += e.Record.Utilities
		t.Internet += e.Record.Internet
		t.Cleaning += e.Record.Cleaning
		t.Total += e.Record.Total()
	}
	return t
}
