// Package layout assigns same-day timed events to rendering columns so that
// temporally overlapping events never share one.
package layout

import (
	"sort"
	"time"

	"calcore/internal/models"
)

// Placement is everything a renderer needs to draw one event block without
// overlapping its neighbours.
type Placement struct {
	EventID string
	// Column is the event's slot within its overlap group, TotalColumns the
	// width of that group; LeftFraction is Column/TotalColumns.
	Column       int
	TotalColumns int
	LeftFraction float64
	// Top and Height are fractions of the full day (0..1), derived from the
	// event's minute-of-day interval.
	Top    float64
	Height float64
}

type interval struct {
	id         string
	start, end int // minutes of day, half-open
	column     int
}

// ForDay lays out the timed events of a single day. All-day events are the
// caller's concern; any passed in are ignored. The assignment is
// deterministic: events sorted by start minute, ties broken by longer
// duration first, columns reused greedily left to right.
func ForDay(day time.Time, events []models.CalendarEvent) []Placement {
	ivs := make([]*interval, 0, len(events))
	for i := range events {
		ev := &events[i]
		if ev.AllDay {
			continue
		}
		ivs = append(ivs, &interval{
			id:    ev.ID,
			start: minuteOfDay(ev.Start, day),
			end:   minuteOfDay(ev.End, day),
		})
	}

	sort.SliceStable(ivs, func(a, b int) bool {
		if ivs[a].start != ivs[b].start {
			return ivs[a].start < ivs[b].start
		}
		return ivs[a].end-ivs[a].start > ivs[b].end-ivs[b].start
	})

	// Greedy column assignment: first column whose last event has ended.
	var columnEnds []int
	for _, iv := range ivs {
		placed := false
		for c, end := range columnEnds {
			if end <= iv.start {
				iv.column = c
				columnEnds[c] = iv.end
				placed = true
				break
			}
		}
		if !placed {
			iv.column = len(columnEnds)
			columnEnds = append(columnEnds, iv.end)
		}
	}

	// An event's width is governed by its direct-overlap group only, not the
	// transitive closure of overlap chains.
	placements := make([]Placement, len(ivs))
	for i, iv := range ivs {
		maxCol := iv.column
		for _, other := range ivs {
			if iv.start < other.end && iv.end > other.start && other.column > maxCol {
				maxCol = other.column
			}
		}
		total := maxCol + 1
		placements[i] = Placement{
			EventID:      iv.id,
			Column:       iv.column,
			TotalColumns: total,
			LeftFraction: float64(iv.column) / float64(total),
			Top:          float64(iv.start) / (24 * 60),
			Height:       float64(iv.end-iv.start) / (24 * 60),
		}
	}
	return placements
}

// minuteOfDay clamps an instant into the given day's [0, 1440] minute range,
// so events spilling over midnight render within the day they appear on.
func minuteOfDay(t, day time.Time) int {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	m := int(t.In(day.Location()).Sub(midnight) / time.Minute)
	if m < 0 {
		return 0
	}
	if m > 24*60 {
		return 24 * 60
	}
	return m
}
