package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/imena-mn/nmflow/internal/domain/hotlab"
)

type HotLabRepository struct {
	db *gorm.DB
}

func NewHotLabRepository(db *gorm.DB) *HotLabRepository {
	return &HotLabRepository{db: db}
}

func (r *HotLabRepository) CreateProduct(ctx context.Context, p *hotlab.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *HotLabRepository) GetProduct(ctx context.Context, id uuid.UUID) (*hotlab.Product, error) {
	var p hotlab.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hotlab.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading product: %w", err)
	}
	return &p, nil
}

func (r *HotLabRepository) ListProducts(ctx context.Context) ([]*hotlab.Product, error) {
	var products []*hotlab.Product
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

func (r *HotLabRepository) CreateLot(ctx context.Context, l *hotlab.TracerLot) error {
	err := r.db.WithContext(ctx).Create(l).Error
	if err != nil && isUniqueViolation(err) {
		return hotlab.ErrLotNumberTaken
	}
	return err
}

func (r *HotLabRepository) GetLot(ctx context.Context, id uuid.UUID) (*hotlab.TracerLot, error) {
	var l hotlab.TracerLot
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hotlab.ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading tracer lot: %w", err)
	}
	return &l, nil
}

func (r *HotLabRepository) ListLots(ctx context.Context) ([]*hotlab.TracerLot, error) {
	var lots []*hotlab.TracerLot
	if err := r.db.WithContext(ctx).Order("expiry_date ASC").Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("listing tracer lots: %w", err)
	}
	return lots, nil
}

func (r *HotLabRepository) CreatePreparation(ctx context.Context, p *hotlab.Preparation) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *HotLabRepository) ListPreparations(ctx context.Context) ([]*hotlab.Preparation, error) {
	var preps []*hotlab.Preparation
	if err := r.db.WithContext(ctx).Order("preparation_datetime DESC").Find(&preps).Error; err != nil {
		return nil, fmt.Errorf("listing preparations: %w", err)
	}
	return preps, nil
}

func isUniqueViolation(err error) bool {
	// Postgres unique_violation is SQLSTATE 23505.
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
