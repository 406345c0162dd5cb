// Package memory provides in-memory repository implementations for tests and
// single-process development runs. They honor the same contracts as the
// Postgres-backed repositories, including snapshot isolation: values handed
// out never alias stored state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/patient"
)

type PatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*patient.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (r *PatientRepository) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p.Clone()
	return nil
}

func (r *PatientRepository) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p.Clone(), nil
}

func (r *PatientRepository) List(_ context.Context, q *patient.ListQuery) (*patient.PagedPatients, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*patient.Patient
	for _, p := range r.patients {
		if q.RoomID != nil && p.CurrentRoomID != *q.RoomID {
			continue
		}
		if q.Status != nil && p.StatusInRoom != *q.Status {
			continue
		}
		if q.Search != "" {
			needle := strings.ToLower(q.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.ID.String()), needle) {
				continue
			}
		}
		matched = append(matched, p.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &patient.PagedPatients{
		Patients:   matched[start:end],
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *PatientRepository) Save(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return patient.ErrPatientNotFound
	}
	r.patients[p.ID] = p.Clone()
	return nil
}

func (r *PatientRepository) ListAll(_ context.Context) ([]*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*patient.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
