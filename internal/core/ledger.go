package core

import (
	"errors"
	"fmt"
	"strings"
)

// Field names one of the user-editable charge categories.
type Field string

const (
	FieldUtilities Field = "servicios"
	FieldInternet  Field = "internet"
	FieldCleaning  Field = "aseo"
)

var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrUnknownField       = errors.New("unknown charge field")
	ErrNegativeCharge     = errors.New("charge cannot be negative")
)

// Fields lists the editable categories in form order.
func Fields() []Field {
	return []Field{FieldUtilities, FieldInternet, FieldCleaning}
}

// ParseField maps a form key to a Field.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldUtilities, FieldInternet, FieldCleaning:
		return f, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownField)
	}
}

// ChargeRecord holds one participant's charges for the current period.
// The total is derived from the parts and has no setter.
type ChargeRecord struct {
	Base      int64
	Utilities int64
	Internet  int64
	Cleaning  int64
}

// Total returns base plus every variable charge.
func (c ChargeRecord) Total() int64 {
	return c.Base + c.Utilities + c.Internet + c.Cleaning
}

// Get returns the value of a variable charge.
func (c ChargeRecord) Get(f Field) int64 {
	switch f {
	case FieldUtilities:
		return c.Utilities
	case FieldInternet:
		return c.Internet
	case FieldCleaning:
		return c.Cleaning
	}
	return 0
}

func (c ChargeRecord) with(f Field, v int64) ChargeRecord {
	switch f {
	case FieldUtilities:
		c.Utilities = v
	case FieldInternet:
		c.Internet = v
	case FieldCleaning:
		c.Cleaning = v
	}
	return c
}

// Entry pairs a participant with their charges.
type Entry struct {
	Participant Participant
	Record      ChargeRecord
}

// Ledger maps participants to their current charges, in roster order.
// Its key set is fixed at construction.
type Ledger struct {
	entries []Entry
	index   map[string]int
}

// NewLedger creates a ledger for the roster with all variable charges at zero.
func NewLedger(r Roster) *Ledger {
	l := &Ledger{
		entries: make([]Entry, 0, len(r)),
		index:   make(map[string]int, len(r)),
	}
	for _, p := range r {
		if _, dup := l.index[p.Name]; dup {
			continue
		}
		l.index[p.Name] = len(l.entries)
		l.entries = append(l.entries, Entry{Participant: p, Record: ChargeRecord{Base: p.BaseCharge}})
	}
	return l
}

// Len returns the number of participants.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Entries returns a copy of the entries in roster order.
func (l *Ledger) Entries() []Entry {
	if l == nil {
		return nil
	}
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Get returns the entry for name.
func (l *Ledger) Get(name string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	i, ok := l.index[name]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	c := &Ledger{
		entries: make([]Entry, len(l.entries)),
		index:   make(map[string]int, len(l.index)),
	}
	copy(c.entries, l.entries)
	for k, v := range l.index {
		c.index[k] = v
	}
	return c
}

// UpdateCharge returns a copy of l with one variable charge replaced.
// l itself is left untouched.
func UpdateCharge(l *Ledger, name string, f Field, value int64) (*Ledger, error) {
	if _, err := ParseField(string(f)); err != nil {
		return nil, err
	}
	if value < 0 {
		return nil, ErrNegativeCharge
	}
	if value > MaxAmount {
		return nil, fmt.Errorf("%d: %w", value, ErrAmountTooLarge)
	}
	if l == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownParticipant)
	}
	i, ok := l.index[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownParticipant)
	}
	next := l.Clone()
	next.entries[i].Record = next.entries[i].Record.with(f, value)
	return next, nil
}
