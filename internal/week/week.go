// Package week computes the 7-day display window for a given anchor date,
// plus the wide rolling fetch window the event cache maintains around it.
package week

import (
	"time"

	"calcore/internal/models"
)

// StartDay selects which weekday opens the week.
type StartDay int

const (
	StartSunday StartDay = 0
	StartMonday StartDay = 1
)

// Window is the 7-day span containing an anchor date.
type Window struct {
	// Days holds the seven contiguous dates of the week, each at local
	// midnight in the display timezone.
	Days [7]time.Time
	// Start is 00:00:00.000 on the first day, End is 23:59:59.999 on the
	// last, both in the display timezone.
	Start time.Time
	End   time.Time
}

// Of returns the window of the week containing anchor. Pure; no failure
// modes — an unknown start day falls back to Sunday.
func Of(anchor time.Time, startDay StartDay, loc *time.Location) Window {
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)

	offset := int(day.Weekday()) - int(startDay)
	if offset < 0 {
		offset += 7
	}
	first := day.AddDate(0, 0, -offset)

	var w Window
	for i := range w.Days {
		w.Days[i] = first.AddDate(0, 0, i)
	}
	w.Start = first
	last := w.Days[6]
	w.End = time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return w
}

// Range returns the window as a half-open DateRange for cache filtering.
func (w Window) Range() models.DateRange {
	return models.DateRange{Start: w.Start, End: w.Days[6].AddDate(0, 0, 1)}
}

// Contains reports whether t falls on one of the window's days.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.Days[6].AddDate(0, 0, 1))
}

// IsToday reports whether the window day at index i is the current date,
// judged in the window's own timezone.
func (w Window) IsToday(i int, now time.Time) bool {
	d := w.Days[i]
	n := now.In(d.Location())
	return d.Year() == n.Year() && d.Month() == n.Month() && d.Day() == n.Day()
}

// DayHeader formats a window day for column headers, e.g. "Mon 2".
func (w Window) DayHeader(i int) string {
	return w.Days[i].Format("Mon 2")
}

// FetchRange returns the wide rolling window the cache keeps loaded around
// the anchor: monthsBack months before the week start through monthsForward
// months after the week end. Week navigation inside this range never needs
// a provider round trip.
func FetchRange(anchor time.Time, startDay StartDay, loc *time.Location, monthsBack, monthsForward int) models.DateRange {
	w := Of(anchor, startDay, loc)
	return models.DateRange{
		Start: w.Start.AddDate(0, -monthsBack, 0),
		End:   w.Days[6].AddDate(0, monthsForward, 1),
	}
}
