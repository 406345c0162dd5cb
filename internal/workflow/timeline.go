package workflow

import (
	"fmt"
	"time"

	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
)

// Edge selects which timestamp of a ledger entry a lookup targets.
type Edge string

const (
	EdgeEntry Edge = "entry"
	EdgeExit  Edge = "exit"
)

// Segment is a measured pair of pathway stages.
type Segment struct {
	Start room.ID
	End   room.ID
	Label string
}

// DefaultSegments returns the inter-room delays tracked by the service.
func DefaultSegments() []Segment {
	return []Segment{
		{Start: room.Consultation, End: room.Injection, Label: "Consultation → Injection"},
		{Start: room.Injection, End: room.Examination, Label: "Injection → Examen"},
		{Start: room.Examination, End: room.Report, Label: "Examen → Compte Rendu"},
		{Start: room.Report, End: room.Withdrawal, Label: "Compte Rendu → Retrait CR"},
	}
}

// FindTime scans a history for the timestamp of a room visit. For the entry
// edge it returns the earliest entryDate, for the exit edge the latest
// exitDate. A non-nil after restricts the scan to timestamps strictly later
// than the cursor. The second return is false when no matching entry exists,
// which includes open entries when asking for an exit.
func FindTime(history []patient.HistoryEntry, roomID room.ID, edge Edge, after *time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, h := range history {
		if h.RoomID != roomID {
			continue
		}
		var ts time.Time
		switch edge {
		case EdgeEntry:
			ts = h.EntryDate
		case EdgeExit:
			if h.ExitDate == nil {
				continue
			}
			ts = *h.ExitDate
		default:
			continue
		}
		if after != nil && !ts.After(*after) {
			continue
		}
		if !found {
			best, found = ts, true
			continue
		}
		if (edge == EdgeEntry && ts.Before(best)) || (edge == EdgeExit && ts.After(best)) {
			best = ts
		}
	}
	return best, found
}

// SegmentResult is the outcome of measuring one segment. An incomplete
// segment is a normal result, not an error: the patient simply has not
// traversed it yet.
type SegmentResult struct {
	Segment  Segment
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Complete bool
}

// ComputeDelays measures each segment over one patient's history. The cursor
// chains forward: segment N+1 only considers timestamps after segment N's
// resolved end, so a return trip through a room is never counted twice and
// never yields a negative duration.
func ComputeDelays(history []patient.HistoryEntry, segments []Segment) []SegmentResult {
	results := make([]SegmentResult, 0, len(segments))
	var cursor *time.Time
	for _, seg := range segments {
		res := SegmentResult{Segment: seg}
		start, ok := FindTime(history, seg.Start, EdgeExit, cursor)
		if ok {
			end, ok := FindTime(history, seg.End, EdgeEntry, &start)
			if ok {
				res.Start = start
				res.End = end
				res.Duration = end.Sub(start)
				res.Complete = true
				cursor = &end
			}
		}
		results = append(results, res)
	}
	return results
}

// FormatDuration renders a duration the way the floor displays it:
// "2h 05m", "20m 1s" or "45s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Period buckets aggregate statistics by when a segment ended.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodThisWeek  Period = "thisWeek"
	PeriodThisMonth Period = "thisMonth"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodToday, PeriodThisWeek, PeriodThisMonth:
		return true
	}
	return false
}

// Contains reports whether t falls in the period anchored at now. Weeks
// start on Monday.
func (p Period) Contains(t, now time.Time) bool {
	t = t.In(now.Location())
	switch p {
	case PeriodToday:
		y1, m1, d1 := t.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case PeriodThisWeek:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, -(weekday - 1))
		return !t.Before(monday) && t.Before(monday.AddDate(0, 0, 7))
	case PeriodThisMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	}
	return false
}
