package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/room"
)

type ListQuery struct {
	RoomID   *room.ID
	Status   *StatusInRoom
	Search   string // case-insensitive match against name or id
	Page     int
	PageSize int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, q *ListQuery) (*PagedPatients, error)

	// Save persists the full aggregate after a workflow transition. The
	// engine hands over a fresh copy; persistence is a write-through of the
	// whole snapshot, never a partial field update.
	Save(ctx context.Context, p *Patient) error

	// ListAll returns every patient, for statistics and worklist queries.
	ListAll(ctx context.Context) ([]*Patient, error)
}
