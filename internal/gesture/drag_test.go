package gesture

import (
	"testing"
	"time"

	"calcore/internal/models"
)

func gridEvent(id string, startH, startM, endH, endM int) models.CalendarEvent {
	return models.CalendarEvent{
		ID:    id,
		Start: time.Date(2025, time.June, 9, startH, startM, 0, 0, time.UTC),
		End:   time.Date(2025, time.June, 9, endH, endM, 0, 0, time.UTC),
	}
}

func TestMovePreservesDurationAndGrabOffset(t *testing.T) {
	m := NewMover()
	ev := gridEvent("e1", 9, 0, 10, 30)

	// Grab the event 20 minutes below its start, then drag down two hours.
	m.Begin(ev, monday, 100, minuteY(9, 20), testMetrics)
	m.Move(100, minuteY(11, 20))

	got, ok := m.Release()
	if !ok {
		t.Fatal("significant move reported as click")
	}
	if got.Start.Hour() != 11 || got.Start.Minute() != 0 {
		t.Fatalf("start = %02d:%02d, want 11:00", got.Start.Hour(), got.Start.Minute())
	}
	if d := got.End.Sub(got.Start); d != 90*time.Minute {
		t.Fatalf("duration = %v, want 90m", d)
	}
}

func TestMoveSnapsToSlotBoundary(t *testing.T) {
	m := NewMover()
	ev := gridEvent("e1", 9, 0, 10, 0)

	m.Begin(ev, monday, 100, minuteY(9, 0), testMetrics)
	m.Move(100, minuteY(10, 7))

	got, ok := m.Release()
	if !ok {
		t.Fatal("significant move reported as click")
	}
	if got.Start.Minute()%15 != 0 {
		t.Fatalf("start %v not snapped to 15 minutes", got.Start)
	}
}

func TestInsignificantMoveIsAClick(t *testing.T) {
	m := NewMover()
	ev := gridEvent("e1", 9, 0, 10, 0)

	m.Begin(ev, monday, 100, minuteY(9, 10), testMetrics)
	m.Move(102, minuteY(9, 10)+4)

	if _, ok := m.Release(); ok {
		t.Fatal("sub-threshold gesture committed a move")
	}
	if m.Active() {
		t.Fatal("mover still active after release")
	}
}

func TestMovePreviewOnlyWhenSignificant(t *testing.T) {
	m := NewMover()
	m.Begin(gridEvent("e1", 9, 0, 10, 0), monday, 100, minuteY(9, 0), testMetrics)

	if _, ok := m.Preview(); ok {
		t.Fatal("preview available before any movement")
	}
	m.Move(100, minuteY(9, 30))
	if _, ok := m.Preview(); !ok {
		t.Fatal("no preview during a significant drag")
	}
}

func TestResizeEnforcesMinimumGap(t *testing.T) {
	r := NewResizer()
	ev := gridEvent("e1", 9, 0, 10, 0)

	r.Begin(ev, monday, minuteY(10, 0), testMetrics)
	// Drag the trailing edge well above the start.
	r.Move(minuteY(8, 0))

	got, ok := r.Release()
	if !ok {
		t.Fatal("significant resize discarded")
	}
	if got.End.Hour() != 9 || got.End.Minute() != 15 {
		t.Fatalf("end = %02d:%02d, want 09:15", got.End.Hour(), got.End.Minute())
	}
	if !got.Start.Equal(ev.Start) {
		t.Fatal("resize moved the event start")
	}
}

func TestResizeCapsAtMidnight(t *testing.T) {
	r := NewResizer()
	ev := gridEvent("e1", 22, 0, 23, 0)

	r.Begin(ev, monday, minuteY(23, 0), testMetrics)
	r.Move(minuteY(23, 59) + 120)

	got, ok := r.Release()
	if !ok {
		t.Fatal("significant resize discarded")
	}
	next := monday.AddDate(0, 0, 1)
	if !got.End.Equal(next) {
		t.Fatalf("end = %v, want midnight %v", got.End, next)
	}
}

func TestResizeBelowThresholdDiscarded(t *testing.T) {
	r := NewResizer()
	ev := gridEvent("e1", 9, 0, 10, 0)

	r.Begin(ev, monday, minuteY(10, 0), testMetrics)
	r.Move(minuteY(10, 0) + 2)

	if _, ok := r.Release(); ok {
		t.Fatal("sub-threshold resize committed")
	}
}
