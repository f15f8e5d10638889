// Package gesture turns raw pointer input over the week grid into snapped
// time ranges: new-event selection, and move/resize of existing events.
// The state machines are synchronous; they never block or suspend.
package gesture

import (
	"time"

	"calcore/internal/models"
)

// Pixel displacement a gesture must accumulate before it counts as a drag
// rather than a click.
const (
	dragThresholdPx   = 5
	resizeThresholdPx = 3
)

// GridMetrics is the grid geometry captured once at gesture start. It is
// deliberately not re-read mid-gesture so layout shifts cannot make the
// selection jitter.
type GridMetrics struct {
	// Top is the grid's top offset in the pointer coordinate space.
	Top float64
	// RowHeight is the pixel height of one hour row.
	RowHeight float64
}

// minuteAt converts a pointer y coordinate to a minute-of-day offset.
func (m GridMetrics) minuteAt(y float64) int {
	if m.RowHeight <= 0 {
		return 0
	}
	return int((y - m.Top) / m.RowHeight * 60)
}

// snapMinute rounds a minute-of-day to the nearest slot boundary.
func snapMinute(minute int) int {
	return (minute + models.SlotMinutes/2) / models.SlotMinutes * models.SlotMinutes
}

// slotAt converts a pointer y coordinate to a snapped, clamped TimeSlot on
// the given date.
func slotAt(date time.Time, y float64, m GridMetrics) models.TimeSlot {
	return models.SlotAtMinute(date, snapMinute(m.minuteAt(y)))
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
