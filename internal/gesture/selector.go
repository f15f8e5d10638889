package gesture

import (
	"time"

	"calcore/internal/models"
)

// clickRangeMinutes is the span produced by a plain click with no drag.
const clickRangeMinutes = 30

// lastSlotMinute is the final representable slot of a day (23:45).
const lastSlotMinute = 23*60 + 45

// Selector converts a pointer-down / move / release sequence over empty
// grid space into a SelectionRange for a new event.
//
// The machine is idle until Begin, selecting until Release or Leave, and
// returns to idle after emitting at most one range per gesture.
type Selector struct {
	active  bool
	date    time.Time
	metrics GridMetrics

	anchor models.TimeSlot
	last   models.TimeSlot

	originX, originY float64
	significant      bool
}

// NewSelector returns an idle selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Active reports whether a selection gesture is in progress.
func (s *Selector) Active() bool {
	return s.active
}

// Begin starts a gesture at the given pointer position over the day column
// for date. The grid metrics are captured here and reused for the whole
// gesture.
func (s *Selector) Begin(date time.Time, x, y float64, metrics GridMetrics) {
	s.active = true
	s.date = date
	s.metrics = metrics
	s.anchor = slotAt(date, y, metrics)
	s.last = s.anchor
	s.originX = x
	s.originY = y
	s.significant = false
}

// Move updates the selection endpoint. Positions over a different day
// column leave the endpoint unchanged; a selection never crosses days.
func (s *Selector) Move(date time.Time, x, y float64) {
	if !s.active {
		return
	}
	if abs(x-s.originX) > dragThresholdPx || abs(y-s.originY) > dragThresholdPx {
		s.significant = true
	}
	if !sameDate(date, s.date) {
		return
	}
	s.last = slotAt(s.date, y, s.metrics)
}

// Preview returns the range the gesture currently spans, for live
// rendering. Only meaningful while Active.
func (s *Selector) Preview() models.SelectionRange {
	return normalize(s.anchor, s.last)
}

// Release ends the gesture and returns the committed range. A click (no
// significant movement) yields a fixed 30-minute range at the anchor slot;
// a drag yields the normalized span with a 15-minute floor.
func (s *Selector) Release() models.SelectionRange {
	defer func() { s.active = false }()

	if !s.significant {
		end := models.SlotAtMinute(s.date, s.anchor.MinuteOfDay()+clickRangeMinutes)
		return models.SelectionRange{Start: s.anchor, End: end}
	}
	return normalize(s.anchor, s.last)
}

// Leave forces an immediate release using the last known slot, for when the
// pointer exits the grid mid-selection.
func (s *Selector) Leave() models.SelectionRange {
	return s.Release()
}

// normalize orders the pair, enforces the 15-minute minimum duration by
// extending the end, and clamps the end to the last representable slot.
func normalize(a, b models.TimeSlot) models.SelectionRange {
	start, end := a, b
	if end.Before(start) {
		start, end = end, start
	}
	if end.MinuteOfDay()-start.MinuteOfDay() < models.SlotMinutes {
		end = models.SlotAtMinute(start.Date, start.MinuteOfDay()+models.SlotMinutes)
	}
	if end.MinuteOfDay() > lastSlotMinute {
		end = models.SlotAtMinute(end.Date, lastSlotMinute)
	}
	return models.SelectionRange{Start: start, End: end}
}
