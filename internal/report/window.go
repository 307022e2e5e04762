package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/kapital-dev/kapital/internal/model"
)

// Window selects the transactions sharing a calendar period with a reference instant.
type Window int

const (
	Day Window = iota
	Week
	Month
	Year
	All
)

var windowNames = [...]string{"day", "week", "month", "year", "all"}

func (w Window) String() string {
	if w < Day || w > All {
		return fmt.Sprintf("Window(%d)", int(w))
	}
	return windowNames[w]
}

// Windows lists every window in display order.
func Windows() []Window {
	return []Window{Day, Week, Month, Year, All}
}

// ParseWindow resolves a window name such as "month".
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range windowNames {
		if s == name {
			return Window(i), nil
		}
	}
	return 0, fmt.Errorf("unknown window %q, want one of %s", s, strings.Join(windowNames[:], ", "))
}

// Contains reports whether t falls in the same calendar period as ref.
// Fields are read in ref's location. Weeks are ISO 8601 weeks.
func (w Window) Contains(t, ref time.Time) bool {
	t = t.In(ref.Location())
	switch w {
	case Day:
		return t.Year() == ref.Year() && t.YearDay() == ref.YearDay()
	case Week:
		ty, tw := t.ISOWeek()
		ry, rw := ref.ISOWeek()
		return ty == ry && tw == rw
	case Month:
		return t.Year() == ref.Year() && t.Month() == ref.Month()
	case Year:
		return t.Year() == ref.Year()
	case All:
		return true
	}
	return false
}

// FilterByWindow returns the transactions of txns inside window w around ref,
// keeping their order. The input is never modified.
func FilterByWindow(txns []model.Transaction, w Window, ref time.Time) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if w.Contains(t.Date, ref) {
			out = append(out, t)
		}
	}
	return out
}
