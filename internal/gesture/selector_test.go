package gesture

import (
	"testing"
	"time"

	"calcore/internal/models"
)

// metrics with one pixel per minute keep the test arithmetic readable.
var testMetrics = GridMetrics{Top: 0, RowHeight: 60}

var monday = time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)

func minuteY(h, m int) float64 {
	return float64(h*60 + m)
}

func TestClickProducesThirtyMinuteRange(t *testing.T) {
	s := NewSelector()
	s.Begin(monday, 100, minuteY(14, 7), testMetrics)
	// Sub-threshold wiggle keeps the gesture a click.
	s.Move(monday, 102, minuteY(14, 7)+3)
	got := s.Release()

	if got.Start.Hour != 14 || got.Start.Minute != 0 {
		t.Fatalf("start = %02d:%02d, want 14:00", got.Start.Hour, got.Start.Minute)
	}
	if got.Duration() != 30*time.Minute {
		t.Fatalf("duration = %v, want 30m", got.Duration())
	}
	if s.Active() {
		t.Fatal("selector still active after release")
	}
}

func TestShortDragGetsFifteenMinuteFloor(t *testing.T) {
	s := NewSelector()
	s.Begin(monday, 100, minuteY(9, 5), testMetrics)
	s.Move(monday, 100, minuteY(9, 12))
	got := s.Release()

	if got.Start.Hour != 9 || got.Start.Minute != 0 {
		t.Fatalf("start = %02d:%02d, want 09:00", got.Start.Hour, got.Start.Minute)
	}
	if got.Duration() != 15*time.Minute {
		t.Fatalf("duration = %v, want 15m", got.Duration())
	}
}

func TestUpwardDragNormalizes(t *testing.T) {
	s := NewSelector()
	s.Begin(monday, 100, minuteY(11, 0), testMetrics)
	s.Move(monday, 100, minuteY(9, 30))
	got := s.Release()

	if got.Start.Hour != 9 || got.Start.Minute != 30 {
		t.Fatalf("start = %02d:%02d, want 09:30", got.Start.Hour, got.Start.Minute)
	}
	if got.End.Hour != 11 || got.End.Minute != 0 {
		t.Fatalf("end = %02d:%02d, want 11:00", got.End.Hour, got.End.Minute)
	}
}

func TestCrossDayMovementIgnored(t *testing.T) {
	s := NewSelector()
	s.Begin(monday, 100, minuteY(9, 0), testMetrics)
	tuesday := monday.AddDate(0, 0, 1)
	s.Move(tuesday, 300, minuteY(15, 0))
	got := s.Release()

	// The pointer moved far enough to be a drag, but the endpoint never
	// followed it into the other column.
	if got.End.Hour != 9 || got.End.Minute != 15 {
		t.Fatalf("end = %02d:%02d, want 09:15 (floored minimum)", got.End.Hour, got.End.Minute)
	}
	if got.Start.Date != monday {
		t.Fatalf("range left its original day")
	}
}

func TestEndClampedToLastSlot(t *testing.T) {
	s := NewSelector()
	s.Begin(monday, 100, minuteY(23, 30), testMetrics)
	s.Move(monday, 100, minuteY(23, 59)+30)
	got := s.Release()

	if got.End.MinuteOfDay() > 23*60+45 {
		t.Fatalf("end %02d:%02d overflows past the last slot", got.End.Hour, got.End.Minute)
	}
}

func TestLeaveForcesRelease(t *testing.T) {
	s := NewSelector()
	s.Begin(monday, 100, minuteY(10, 0), testMetrics)
	s.Move(monday, 100, minuteY(12, 0))
	got := s.Leave()

	if s.Active() {
		t.Fatal("selector still active after leave")
	}
	want := models.SelectionRange{
		Start: models.TimeSlot{Date: monday, Hour: 10},
		End:   models.TimeSlot{Date: monday, Hour: 12},
	}
	if got != want {
		t.Fatalf("range = %+v, want %+v", got, want)
	}
}
