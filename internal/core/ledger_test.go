package core

import (
	"errors"
	"math"
	"testing"
)

func testRoster() Roster {
	return Roster{
		{Name: "A", BaseCharge: 100, ReminderDay: 5},
		{Name: "B", BaseCharge: 200, ReminderDay: 10},
	}
}

func assertTotalsInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	for _, e := range l.Entries() {
		r := e.Record
		if r.Total() != r.Base+r.Utilities+r.Internet+r.Cleaning {
			t.Fatalf("%s: total %d diverges from parts %+v", e.Participant.Name, r.Total(), r)
		}
	}
}

func TestNewLedgerMatchesRoster(t *testing.T) {
	r := DefaultRoster()
	if err := r.Validate(); err != nil {
		t.Fatalf("default roster invalid: %v", err)
	}
	l := NewLedger(r)
	if l.Len() != len(r) {
		t.Fatalf("expected %d entries, got %d", len(r), l.Len())
	}
	for i, e := range l.Entries() {
		if e.Participant.Name != r[i].Name {
			t.Fatalf("entry %d: expected %s, got %s", i, r[i].Name, e.Participant.Name)
		}
		if e.Record.Base != r[i].BaseCharge || e.Record.Total() != r[i].BaseCharge {
			t.Fatalf("entry %d: expected base-only record, got %+v", i, e.Record)
		}
	}
	assertTotalsInvariant(t, l)
}

func TestUpdateCharge(t *testing.T) {
	l := NewLedger(testRoster())

	next, err := UpdateCharge(l, "A", FieldUtilities, 50)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	a, _ := next.Get("A")
	if a.Record.Utilities != 50 || a.Record.Total() != 150 {
		t.Fatalf("unexpected record after update: %+v total=%d", a.Record, a.Record.Total())
	}
	assertTotalsInvariant(t, next)

	// The input ledger is not mutated.
	orig, _ := l.Get("A")
	if orig.Record.Utilities != 0 {
		t.Fatalf("original ledger mutated: %+v", orig.Record)
	}

	next, err = UpdateCharge(next, "A", FieldInternet, 30)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	next, err = UpdateCharge(next, "A", FieldCleaning, 20)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	a, _ = next.Get("A")
	if a.Record.Total() != 200 {
		t.Fatalf("expected total 200, got %d", a.Record.Total())
	}
	assertTotalsInvariant(t, next)

	// Overwrite, not accumulate.
	next, _ = UpdateCharge(next, "A", FieldUtilities, 5)
	a, _ = next.Get("A")
	if a.Record.Total() != 155 {
		t.Fatalf("expected total 155 after overwrite, got %d", a.Record.Total())
	}
}

func TestUpdateChargeErrors(t *testing.T) {
	l := NewLedger(testRoster())
	tests := []struct {
		name    string
		person  string
		field   Field
		value   int64
		wantErr error
	}{
		{"unknown participant", "Z", FieldUtilities, 1, ErrUnknownParticipant},
		{"unknown field", "A", Field("arriendo"), 1, ErrUnknownField},
		{"negative value", "A", FieldInternet, -1, ErrNegativeCharge},
		{"above ceiling", "A", FieldInternet, MaxAmount + 1, ErrAmountTooLarge},
		{"max int64", "A", FieldCleaning, math.MaxInt64, ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UpdateCharge(l, tt.person, tt.field, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if l.Len() != 2 {
		t.Fatalf("ledger key set changed: %d", l.Len())
	}
	if _, ok := l.Get("Z"); ok {
		t.Fatalf("unknown participant was added")
	}
}

func TestParseField(t *testing.T) {
	for _, s := range []string{"servicios", " Internet ", "ASEO"} {
		if _, err := ParseField(s); err != nil {
			t.Fatalf("%q: %v", s, err)
		}
	}
	if _, err := ParseField("total"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestRosterValidate(t *testing.T) {
	bads := []Roster{
		{{Name: "", BaseCharge: 1, ReminderDay: 1}},
		{{Name: "A", BaseCharge: 0, ReminderDay: 1}},
		{{Name: "A", BaseCharge: MaxAmount + 1, ReminderDay: 1}},
		{{Name: "A", BaseCharge: 1, ReminderDay: 0}},
		{{Name: "A", BaseCharge: 1, ReminderDay: 32}},
		{{Name: "A", BaseCharge: 1, ReminderDay: 1}, {Name: "A", BaseCharge: 2, ReminderDay: 2}},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLedgerGet(t *testing.T) {
	l := NewLedger(testRoster())
	if e, ok := l.Get("B"); !ok || e.Record.Base != 200 {
		t.Fatalf("Get(B) = %+v, %v", e, ok)
	}
	if _, ok := l.Get("Z"); ok {
		t.Fatal("Get(Z) found an unknown participant")
	}
	var nilLedger *Ledger
	if e, ok := nilLedger.Get("A"); ok || e != (Entry{}) {
		t.Fatalf("nil ledger Get = %+v, %v", e, ok)
	}
}

func TestTotalsAtCeilingStayPositive(t *testing.T) {
	l := NewLedger(Roster{{Name: "A", BaseCharge: MaxAmount, ReminderDay: 1}})
	var err error
	for _, f := range Fields() {
		if l, err = UpdateCharge(l, "A", f, MaxAmount); err != nil {
			t.Fatalf("%s: %v", f, err)
		}
	}
	got := ComputeTotals(l)
	if got.Total != 4*MaxAmount {
		t.Fatalf("grand total = %d, want %d", got.Total, 4*MaxAmount)
	}
}
