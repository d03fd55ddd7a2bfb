package core

import (
	"errors"
	"fmt"
	"strings"
)

// Display colors used by the default roster cards.
var Palette = map[string]string{
	"rosa":     "#FFD1DC",
	"verde":    "#C4E8C2",
	"azul":     "#B5D8FF",
	"amarillo": "#FFECB8",
}

type (
	// Participant is one roster entry. Roster entries are never mutated at runtime.
	Participant struct {
		Name        string
		BaseCharge  int64 // monthly rent in COP, no subunit
		Color       string
		Icon        string
		ReminderDay int // day of month after which an overdue flag may trigger
	}

	// Roster is the fixed, ordered set of participants.
	Roster []Participant
)

var (
	ErrEmptyName         = errors.New("empty participant name")
	ErrDuplicateName     = errors.New("duplicate participant name")
	ErrInvalidBaseCharge = errors.New("invalid base charge")
	ErrInvalidReminder   = errors.New("invalid reminder day")
)

// DefaultRoster returns the household's participants in display order.
func DefaultRoster() Roster {
	return Roster{
		{Name: "Daniel Berrio", BaseCharge: 443_000, Color: Palette["rosa"], Icon: "👨‍💻", ReminderDay: 5},
		{Name: "Oscar Berrio", BaseCharge: 423_000, Color: Palette["verde"], Icon: "👨‍🏫", ReminderDay: 5},
		{Name: "Daniel Hurtado", BaseCharge: 406_000, Color: Palette["azul"], Icon: "👨‍🔧", ReminderDay: 5},
		{Name: "Henner Heredia", BaseCharge: 376_000, Color: Palette["amarillo"], Icon: "👨‍🎨", ReminderDay: 5},
	}
}

func (p Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.BaseCharge <= 0 || p.BaseCharge > MaxAmount {
		return fmt.Errorf("%s: %w", p.Name, ErrInvalidBaseCharge)
	}
	if p.ReminderDay < 1 || p.ReminderDay > 31 {
		return fmt.Errorf("%s: %w", p.Name, ErrInvalidReminder)
	}
	return nil
}

// Validate checks every participant and that names are unique.
func (r Roster) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, p := range r {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("%s: %w", p.Name, ErrDuplicateName)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Names returns participant names in roster order.
func (r Roster) Names() []string {
	out := make([]string, len(r))
	for i, p := range r {
		out[i] = p.Name
	}
	return out
}
