package domain

import (
	"fmt"
	"time"
)

// DefaultLookback is how far back an import reaches when no range was requested
const DefaultLookback = 10 * 24 * time.Hour

// DateWindow is the effective time range of one import run
type DateWindow struct {
	From   time.Time
	To     time.Time
	Hourly bool
}

// ResolveWindow computes the import window. An ExternalImport range wins; otherwise the
// window runs from max(account start date, now-10d) at start of day through end of today.
func ResolveWindow(now time.Time, account *Account, ext *ExternalImport, importType ImportType) (DateWindow, error) {
	loc := account.Location()
	now = now.In(loc)

	w := DateWindow{Hourly: importType == ImportTypeHourly}
	if ext.HasRange() {
		w.From = ext.DateFrom.In(loc)
		w.To = ext.DateTo.In(loc)
	} else {
		from := now.Add(-DefaultLookback)
		if account != nil && account.StartDate.After(from) {
			from = account.StartDate.In(loc)
		}
		w.From = StartOfDay(from)
		w.To = EndOfDay(now)
	}

	if w.Start().After(w.End()) {
		return DateWindow{}, fmt.Errorf("invalid import window: %s is after %s", w.Start().Format(time.RFC3339), w.End().Format(time.RFC3339))
	}
	return w, nil
}

// Start is the lower bound, clipped to the start of day unless the run is hourly
func (w DateWindow) Start() time.Time {
	if w.Hourly {
		return w.From
	}
	return StartOfDay(w.From)
}

// End is the upper bound, clipped to the end of day unless the run is hourly
func (w DateWindow) End() time.Time {
	if w.Hourly {
		return w.To
	}
	return EndOfDay(w.To)
}

// StartOfDay returns midnight of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day in t's location
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
