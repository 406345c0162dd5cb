package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
)

func ts(hour, min, sec int) time.Time {
	return time.Date(2024, 7, 22, hour, min, sec, 0, time.UTC)
}

func closedEntry(id room.ID, entry, exit time.Time) patient.HistoryEntry {
	return patient.HistoryEntry{RoomID: id, EntryDate: entry, ExitDate: &exit}
}

func openEntry(id room.ID, entry time.Time) patient.HistoryEntry {
	return patient.HistoryEntry{RoomID: id, EntryDate: entry}
}

func TestFindTime(t *testing.T) {
	history := []patient.HistoryEntry{
		closedEntry(room.Consultation, ts(9, 0, 0), ts(9, 30, 0)),
		closedEntry(room.Injection, ts(9, 30, 1), ts(10, 0, 0)),
		closedEntry(room.Consultation, ts(10, 30, 0), ts(11, 0, 0)),
		openEntry(room.Examination, ts(11, 15, 0)),
	}

	t.Run("earliest entry", func(t *testing.T) {
		got, ok := FindTime(history, room.Consultation, EdgeEntry, nil)
		require.True(t, ok)
		assert.Equal(t, ts(9, 0, 0), got)
	})

	t.Run("latest exit", func(t *testing.T) {
		got, ok := FindTime(history, room.Consultation, EdgeExit, nil)
		require.True(t, ok)
		assert.Equal(t, ts(11, 0, 0), got)
	})

	t.Run("entry after cursor", func(t *testing.T) {
		after := ts(9, 0, 0)
		got, ok := FindTime(history, room.Consultation, EdgeEntry, &after)
		require.True(t, ok)
		assert.Equal(t, ts(10, 30, 0), got)
	})

	t.Run("cursor is strict", func(t *testing.T) {
		after := ts(11, 0, 0)
		_, ok := FindTime(history, room.Consultation, EdgeExit, &after)
		assert.False(t, ok)
	})

	t.Run("open entries have no exit", func(t *testing.T) {
		_, ok := FindTime(history, room.Examination, EdgeExit, nil)
		assert.False(t, ok)
	})

	t.Run("room never visited", func(t *testing.T) {
		_, ok := FindTime(history, room.Report, EdgeEntry, nil)
		assert.False(t, ok)
	})
}

func TestComputeDelays(t *testing.T) {
	history := []patient.HistoryEntry{
		closedEntry(room.Consultation, ts(9, 30, 0), ts(10, 0, 0)),
		closedEntry(room.Injection, ts(10, 20, 1), ts(10, 45, 0)),
		closedEntry(room.Examination, ts(11, 0, 0), ts(11, 40, 0)),
		openEntry(room.Report, ts(11, 55, 0)),
	}

	results := ComputeDelays(history, DefaultSegments())
	require.Len(t, results, 4)

	// Each segment measures exit of its start room to entry of its end
	// room: the wait between stages, not the dwell time inside either.
	assert.True(t, results[0].Complete)
	assert.Equal(t, ts(10, 20, 1).Sub(ts(10, 0, 0)), results[0].Duration)
	assert.Equal(t, "20m 1s", FormatDuration(results[0].Duration))

	assert.True(t, results[1].Complete)
	assert.Equal(t, ts(11, 0, 0).Sub(ts(10, 45, 0)), results[1].Duration)
	assert.Equal(t, 15*time.Minute, results[1].Duration)

	assert.True(t, results[2].Complete)
	assert.Equal(t, 15*time.Minute, results[2].Duration)

	// Report has no exit yet, so the last segment is still pending.
	assert.False(t, results[3].Complete)
}

func TestComputeDelaysChainedSegmentsDoNotOverlap(t *testing.T) {
	history := []patient.HistoryEntry{
		closedEntry(room.Consultation, ts(9, 0, 0), ts(9, 30, 0)),
		closedEntry(room.Injection, ts(9, 35, 0), ts(10, 30, 0)),
		closedEntry(room.Examination, ts(10, 35, 0), ts(11, 15, 0)),
		closedEntry(room.Report, ts(11, 20, 0), ts(11, 50, 0)),
		closedEntry(room.Withdrawal, ts(11, 55, 0), ts(12, 0, 0)),
	}

	results := ComputeDelays(history, DefaultSegments())
	for i := 1; i < len(results); i++ {
		require.True(t, results[i].Complete)
		assert.False(t, results[i].Start.Before(results[i-1].End),
			"segment %d starts before segment %d ends", i, i-1)
	}

	// Chained spans tile the consultation-to-withdrawal elapsed time: the
	// sum of durations plus inter-segment gaps equals the overall span.
	total := results[len(results)-1].End.Sub(results[0].Start)
	var durations, gaps time.Duration
	for i, r := range results {
		durations += r.Duration
		if i > 0 {
			gaps += r.Start.Sub(results[i-1].End)
		}
	}
	assert.Equal(t, total, durations+gaps)
}

// A return trip through injection must not produce a negative or
// doubly-counted duration for the following segment.
func TestComputeDelaysWithReturnTrip(t *testing.T) {
	history := []patient.HistoryEntry{
		closedEntry(room.Consultation, ts(9, 0, 0), ts(9, 30, 0)),
		closedEntry(room.Injection, ts(9, 35, 0), ts(10, 0, 0)),
		closedEntry(room.Examination, ts(10, 5, 0), ts(10, 20, 0)),
		// sent back to injection, then forward again
		closedEntry(room.Injection, ts(10, 25, 0), ts(10, 40, 0)),
		openEntry(room.Examination, ts(10, 45, 0)),
	}

	results := ComputeDelays(history, DefaultSegments())

	require.True(t, results[0].Complete)
	assert.Equal(t, ts(9, 35, 0), results[0].End)

	require.True(t, results[1].Complete)
	assert.GreaterOrEqual(t, results[1].Duration, time.Duration(0))
	assert.True(t, results[1].Start.After(results[0].End))
}

func TestComputeDelaysIdempotent(t *testing.T) {
	history := []patient.HistoryEntry{
		closedEntry(room.Consultation, ts(9, 30, 0), ts(10, 0, 0)),
		openEntry(room.Injection, ts(10, 20, 1)),
	}

	first := ComputeDelays(history, DefaultSegments())
	second := ComputeDelays(history, DefaultSegments())
	assert.Equal(t, first, second)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{20*time.Minute + time.Second, "20m 1s"},
		{45 * time.Second, "45s"},
		{0, "0s"},
		{15 * time.Minute, "15m"},
		{2*time.Hour + 5*time.Minute, "2h 05m"},
		{-90 * time.Second, "1m 30s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.d), "duration %s", tc.d)
	}
}

func TestPeriodContains(t *testing.T) {
	// A Monday.
	now := time.Date(2024, 7, 22, 15, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		period Period
		t      time.Time
		want   bool
	}{
		{"same day", PeriodToday, time.Date(2024, 7, 22, 8, 0, 0, 0, time.UTC), true},
		{"yesterday", PeriodToday, time.Date(2024, 7, 21, 23, 59, 0, 0, time.UTC), false},
		{"monday start of week", PeriodThisWeek, time.Date(2024, 7, 22, 0, 0, 0, 0, time.UTC), true},
		{"sunday end of week", PeriodThisWeek, time.Date(2024, 7, 28, 23, 0, 0, 0, time.UTC), true},
		{"previous sunday", PeriodThisWeek, time.Date(2024, 7, 21, 12, 0, 0, 0, time.UTC), false},
		{"same month", PeriodThisMonth, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), true},
		{"previous month", PeriodThisMonth, time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.period.Contains(tc.t, now))
		})
	}

	assert.True(t, PeriodToday.Valid())
	assert.False(t, Period("lastYear").Valid())
}
