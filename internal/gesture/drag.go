package gesture

import (
	"time"

	"calcore/internal/models"
)

// MovePreview is the live candidate position of an event being dragged.
type MovePreview struct {
	EventID string
	Start   time.Time
	End     time.Time
}

// Mover repositions an existing event while preserving its duration. The
// caller installs a release hook at the window level so the gesture
// completes even when the pointer leaves the grid; drags legitimately
// cross cell and column boundaries.
type Mover struct {
	active  bool
	event   models.CalendarEvent
	date    time.Time
	metrics GridMetrics

	// grabOffset is the distance in minutes between the pointer and the
	// event's own start at gesture begin, so the event doesn't jump to
	// place its start under the cursor.
	grabOffset int
	duration   time.Duration

	originX, originY float64
	significant      bool
	start            models.TimeSlot
}

// NewMover returns an idle mover.
func NewMover() *Mover {
	return &Mover{}
}

// Active reports whether a move gesture is in progress.
func (m *Mover) Active() bool {
	return m.active
}

// Begin starts dragging ev from the given pointer position over date's
// column.
func (m *Mover) Begin(ev models.CalendarEvent, date time.Time, x, y float64, metrics GridMetrics) {
	m.active = true
	m.event = ev
	m.date = date
	m.metrics = metrics

	evStart := ev.Start.In(date.Location())
	startMin := evStart.Hour()*60 + evStart.Minute()
	m.grabOffset = metrics.minuteAt(y) - startMin
	m.duration = ev.End.Sub(ev.Start)
	m.originX = x
	m.originY = y
	m.significant = false
	m.start = models.SlotAtMinute(date, snapMinute(startMin))
}

// Move updates the candidate start from the pointer position.
func (m *Mover) Move(x, y float64) {
	if !m.active {
		return
	}
	if abs(x-m.originX) > dragThresholdPx || abs(y-m.originY) > dragThresholdPx {
		m.significant = true
	}
	candidate := snapMinute(m.metrics.minuteAt(y) - m.grabOffset)
	m.start = models.SlotAtMinute(m.date, candidate)
}

// Preview returns the live candidate position. Only meaningful while a
// significant drag is in progress.
func (m *Mover) Preview() (MovePreview, bool) {
	if !m.active || !m.significant {
		return MovePreview{}, false
	}
	start := m.start.Time()
	return MovePreview{EventID: m.event.ID, Start: start, End: start.Add(m.duration)}, true
}

// Release ends the gesture. ok is false when the drag never became
// significant, in which case the caller should treat the gesture as an
// ordinary click on the event.
func (m *Mover) Release() (preview MovePreview, ok bool) {
	defer func() { m.active = false }()

	if !m.significant {
		return MovePreview{EventID: m.event.ID}, false
	}
	start := m.start.Time()
	return MovePreview{EventID: m.event.ID, Start: start, End: start.Add(m.duration)}, true
}

// Resizer extends or shrinks an event by dragging its trailing edge. The
// event's start stays fixed; only the end moves.
type Resizer struct {
	active  bool
	event   models.CalendarEvent
	date    time.Time
	metrics GridMetrics

	startMin    int
	endMin      int
	originY     float64
	significant bool
}

// NewResizer returns an idle resizer.
func NewResizer() *Resizer {
	return &Resizer{}
}

// Active reports whether a resize gesture is in progress.
func (r *Resizer) Active() bool {
	return r.active
}

// Begin starts resizing ev from the given pointer position.
func (r *Resizer) Begin(ev models.CalendarEvent, date time.Time, y float64, metrics GridMetrics) {
	r.active = true
	r.event = ev
	r.date = date
	r.metrics = metrics

	evStart := ev.Start.In(date.Location())
	evEnd := ev.End.In(date.Location())
	r.startMin = evStart.Hour()*60 + evStart.Minute()
	r.endMin = evEnd.Hour()*60 + evEnd.Minute()
	if r.endMin <= r.startMin {
		r.endMin = 24 * 60
	}
	r.originY = y
	r.significant = false
}

// Move updates the candidate end from the pointer position, keeping at
// least one slot after the fixed start and never passing midnight.
func (r *Resizer) Move(y float64) {
	if !r.active {
		return
	}
	if abs(y-r.originY) > resizeThresholdPx {
		r.significant = true
	}
	end := snapMinute(r.metrics.minuteAt(y))
	if end < r.startMin+models.SlotMinutes {
		end = r.startMin + models.SlotMinutes
	}
	if end > 24*60 {
		end = 24 * 60
	}
	r.endMin = end
}

// Preview returns the live candidate end. Only meaningful while a
// significant drag is in progress.
func (r *Resizer) Preview() (MovePreview, bool) {
	if !r.active || !r.significant {
		return MovePreview{}, false
	}
	return r.result(), true
}

// Release ends the gesture. ok is false when the drag never became
// significant or the end did not land after the start; the caller then
// discards the gesture.
func (r *Resizer) Release() (preview MovePreview, ok bool) {
	defer func() { r.active = false }()

	if !r.significant || r.endMin <= r.startMin {
		return MovePreview{EventID: r.event.ID}, false
	}
	return r.result(), true
}

func (r *Resizer) result() MovePreview {
	midnight := time.Date(r.date.Year(), r.date.Month(), r.date.Day(), 0, 0, 0, 0, r.date.Location())
	return MovePreview{
		EventID: r.event.ID,
		Start:   r.event.Start,
		End:     midnight.Add(time.Duration(r.endMin) * time.Minute),
	}
}
