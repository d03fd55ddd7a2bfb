package core

import "time"

// FindOverdue returns, in ledger order, the participants whose total exceeds
// their base charge once their reminder day has passed.
//
// Only the day of month is compared, so a flag re-fires every month
// regardless of when the charge was entered.
func FindOverdue(l *Ledger, today time.Time) []string {
	day := today.Day()
	var out []string
	for _, e := range l.Entries() {
		if IsOverdue(e, day) {
			out = append(out, e.Participant.Name)
		}
	}
	return out
}

// IsOverdue reports whether a single entry is flagged on the given day of month.
func IsOverdue(e Entry, dayOfMonth int) bool {
	return dayOfMonth > e.Participant.ReminderDay && e.Record.Total() > e.Record.Base
}
