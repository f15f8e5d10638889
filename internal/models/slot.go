package models

import "time"

// SlotMinutes is the snapping increment for interactive selection.
const SlotMinutes = 15

// TimeSlot is a snapped position on the week grid: a calendar date plus an
// hour and a minute that is always one of 0, 15, 30, 45.
type TimeSlot struct {
	Date   time.Time // date-only, local midnight
	Hour   int       // 0-23
	Minute int       // 0, 15, 30, 45
}

// Time resolves the slot to an instant in the date's location.
func (s TimeSlot) Time() time.Time {
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), s.Hour, s.Minute, 0, 0, s.Date.Location())
}

// MinuteOfDay returns the slot's offset from midnight in minutes.
func (s TimeSlot) MinuteOfDay() int {
	return s.Hour*60 + s.Minute
}

// Before reports whether s is earlier than other on the same date.
func (s TimeSlot) Before(other TimeSlot) bool {
	return s.MinuteOfDay() < other.MinuteOfDay()
}

// SlotAtMinute builds a TimeSlot from a minute-of-day offset, clamping into
// [0, 23:45] and snapping down to the slot grid.
func SlotAtMinute(date time.Time, minuteOfDay int) TimeSlot {
	if minuteOfDay < 0 {
		minuteOfDay = 0
	}
	if minuteOfDay > 23*60+45 {
		minuteOfDay = 23*60 + 45
	}
	minuteOfDay = (minuteOfDay / SlotMinutes) * SlotMinutes
	return TimeSlot{Date: date, Hour: minuteOfDay / 60, Minute: minuteOfDay % 60}
}

// SelectionRange is an ordered pair of slots; Start never comes after End
// once normalized by the selector.
type SelectionRange struct {
	Start TimeSlot
	End   TimeSlot
}

// Duration returns the selected span.
func (r SelectionRange) Duration() time.Duration {
	return time.Duration(r.End.MinuteOfDay()-r.Start.MinuteOfDay()) * time.Minute
}

// DateRange is a half-open instant interval used for provider queries and
// cache filtering.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether the two ranges intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}
