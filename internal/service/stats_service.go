package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
	"github.com/imena-mn/nmflow/internal/workflow"
)

// StatsService derives read-only views from patient ledgers: inter-room
// delay averages, exam-type counts, the activity feed and the daily
// worklist. It never mutates anything.
type StatsService struct {
	repo patient.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewStatsService(repo patient.Repository, log *zap.Logger) *StatsService {
	return &StatsService{repo: repo, log: log, now: time.Now}
}

type SegmentAverage struct {
	Label     string        `json:"label"`
	Average   time.Duration `json:"-"`
	Formatted string        `json:"average"`
	Count     int           `json:"count"`
}

// AverageDelays averages completed segment durations across all patients.
// A segment contributes when its end timestamp falls inside the period. The
// chaining cursor is per patient: one patient's timeline never constrains
// another's.
func (s *StatsService) AverageDelays(ctx context.Context, period workflow.Period) ([]SegmentAverage, error) {
	patients, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	segments := workflow.DefaultSegments()
	now := s.now()

	sums := make([]time.Duration, len(segments))
	counts := make([]int, len(segments))

	for _, p := range patients {
		for i, res := range workflow.ComputeDelays(p.History, segments) {
			if !res.Complete || !period.Contains(res.End, now) {
				continue
			}
			sums[i] += res.Duration
			counts[i]++
		}
	}

	out := make([]SegmentAverage, len(segments))
	for i, seg := range segments {
		out[i] = SegmentAverage{Label: seg.Label, Count: counts[i], Formatted: "N/A"}
		if counts[i] > 0 {
			avg := sums[i] / time.Duration(counts[i])
			out[i].Average = avg
			out[i].Formatted = workflow.FormatDuration(avg)
		}
	}
	return out, nil
}

// PatientDelays measures the standard segments over one patient's ledger.
func (s *StatsService) PatientDelays(ctx context.Context, patientID uuid.UUID) ([]workflow.SegmentResult, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return workflow.ComputeDelays(p.History, workflow.DefaultSegments()), nil
}

type ExamTypeCount struct {
	ExamType string `json:"examType"`
	Count    int    `json:"count"`
}

// ExamTypeCounts tallies requested exams whose request stage completed in
// the period, most frequent first.
func (s *StatsService) ExamTypeCounts(ctx context.Context, period workflow.Period) ([]ExamTypeCount, error) {
	patients, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	counts := map[string]int{}
	for _, p := range patients {
		requested, ok := p.RequestedExam()
		if !ok {
			continue
		}
		for _, h := range p.History {
			if h.RoomID == room.Request &&
				strings.HasPrefix(strings.ToLower(h.StatusMessage), "demande complétée pour") &&
				period.Contains(h.EntryDate, now) {
				counts[requested]++
				break
			}
		}
	}

	out := make([]ExamTypeCount, 0, len(counts))
	for examType, n := range counts {
		out = append(out, ExamTypeCount{ExamType: examType, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ExamType < out[j].ExamType
	})
	return out, nil
}

type ActivityItem struct {
	PatientID     uuid.UUID `json:"patientId"`
	PatientName   string    `json:"patientName"`
	RoomID        room.ID   `json:"roomId"`
	Timestamp     time.Time `json:"timestamp"`
	StatusMessage string    `json:"statusMessage"`
}

// ActivityFeed returns ledger entries from the period across all patients,
// newest first, capped at limit.
func (s *StatsService) ActivityFeed(ctx context.Context, period workflow.Period, limit int) ([]ActivityItem, error) {
	patients, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	now := s.now()
	var items []ActivityItem
	for _, p := range patients {
		for _, h := range p.History {
			if !period.Contains(h.EntryDate, now) {
				continue
			}
			items = append(items, ActivityItem{
				PatientID:     p.ID,
				PatientName:   p.Name,
				RoomID:        h.RoomID,
				Timestamp:     h.EntryDate,
				StatusMessage: h.StatusMessage,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

type WorklistItem struct {
	Patient  *patient.Patient `json:"patient"`
	TimeSlot string           `json:"timeSlot,omitempty"`
}

// DailyWorklist returns patients scheduled for the given day (appointment
// form's dateRdv, "2006-01-02") plus everyone currently mid-pathway, ordered
// by time slot.
func (s *StatsService) DailyWorklist(ctx context.Context, day time.Time) ([]WorklistItem, error) {
	patients, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	dayKey := day.Format("2006-01-02")
	var items []WorklistItem
	for _, p := range patients {
		if p.CurrentRoomID == room.Archive {
			continue
		}

		slot := ""
		if appt, ok := p.RoomData[room.Appointment]; ok {
			date, _ := appt["dateRdv"].(string)
			if date != "" && date != dayKey {
				continue
			}
			slot, _ = appt["heureRdv"].(string)
		}
		items = append(items, WorklistItem{Patient: p, TimeSlot: slot})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].TimeSlot != items[j].TimeSlot {
			return items[i].TimeSlot < items[j].TimeSlot
		}
		return items[i].Patient.Name < items[j].Patient.Name
	})
	return items, nil
}
