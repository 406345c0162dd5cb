package hotlab

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)

	CreateLot(ctx context.Context, l *TracerLot) error
	GetLot(ctx context.Context, id uuid.UUID) (*TracerLot, error)
	ListLots(ctx context.Context) ([]*TracerLot, error)

	CreatePreparation(ctx context.Context, p *Preparation) error
	ListPreparations(ctx context.Context) ([]*Preparation, error)
}
