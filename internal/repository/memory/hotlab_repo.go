package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/hotlab"
)

type HotLabRepository struct {
	mu           sync.RWMutex
	products     map[uuid.UUID]*hotlab.Product
	lots         map[uuid.UUID]*hotlab.TracerLot
	preparations map[uuid.UUID]*hotlab.Preparation
}

func NewHotLabRepository() *HotLabRepository {
	return &HotLabRepository{
		products:     make(map[uuid.UUID]*hotlab.Product),
		lots:         make(map[uuid.UUID]*hotlab.TracerLot),
		preparations: make(map[uuid.UUID]*hotlab.Preparation),
	}
}

func (r *HotLabRepository) CreateProduct(_ context.Context, p *hotlab.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *HotLabRepository) GetProduct(_ context.Context, id uuid.UUID) (*hotlab.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, hotlab.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *HotLabRepository) ListProducts(_ context.Context) ([]*hotlab.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*hotlab.Product, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *HotLabRepository) CreateLot(_ context.Context, l *hotlab.TracerLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.lots {
		if existing.ProductID == l.ProductID && existing.LotNumber == l.LotNumber {
			return hotlab.ErrLotNumberTaken
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.lots[l.ID] = &cp
	return nil
}

func (r *HotLabRepository) GetLot(_ context.Context, id uuid.UUID) (*hotlab.TracerLot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lots[id]
	if !ok {
		return nil, hotlab.ErrLotNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *HotLabRepository) ListLots(_ context.Context) ([]*hotlab.TracerLot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*hotlab.TracerLot, 0, len(r.lots))
	for _, l := range r.lots {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (r *HotLabRepository) CreatePreparation(_ context.Context, p *hotlab.Preparation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.preparations[p.ID] = &cp
	return nil
}

func (r *HotLabRepository) ListPreparations(_ context.Context) ([]*hotlab.Preparation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*hotlab.Preparation, 0, len(r.preparations))
	for _, p := range r.preparations {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PreparationDateTime.After(out[j].PreparationDateTime)
	})
	return out, nil
}
