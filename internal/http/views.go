package http

import (
	"html/template"
	"time"

	"contahogar/internal/core"
)

var fieldLabels = map[core.Field]string{
	core.FieldUtilities: "Servicios",
	core.FieldInternet:  "Internet",
	core.FieldCleaning:  "Aseo",
}

type chargeView struct {
	Field string
	Label string
	Value int64
}

type personView struct {
	Name        string
	Slug        string
	Color       string
	Icon        string
	Base        int64
	Total       int64
	ReminderDay int
	Overdue     bool
	Charges     []chargeView
}

type pageView struct {
	People  []personView
	Totals  core.Totals
	Overdue []string
	Year    int
}

// buildView derives everything the page shows from one ledger snapshot.
func buildView(l *core.Ledger, now time.Time) pageView {
	entries := l.Entries()
	v := pageView{
		People:  make([]personView, 0, len(entries)),
		Totals:  core.ComputeTotals(l),
		Overdue: core.FindOverdue(l, now),
		Year:    now.Year(),
	}
	for _, e := range entries {
		p := personView{
			Name:        e.Participant.Name,
			Slug:        slug(e.Participant.Name),
			Color:       e.Participant.Color,
			Icon:        e.Participant.Icon,
			Base:        e.Record.Base,
			Total:       e.Record.Total(),
			ReminderDay: e.Participant.ReminderDay,
			Overdue:     core.IsOverdue(e, now.Day()),
		}
		for _, f := range core.Fields() {
			p.Charges = append(p.Charges, chargeView{
				Field: string(f),
				Label: fieldLabels[f],
				Value: e.Record.Get(f),
			})
		}
		v.People = append(v.People, p)
	}
	return v
}

// personByName finds one card of v for the out-of-band total swap.
func (v pageView) personByName(name string) (personView, bool) {
	for _, p := range v.People {
		if p.Name == name {
			return p, true
		}
	}
	return personView{}, false
}

var templateFuncs = template.FuncMap{
	"cop": core.FormatCOP,
}
