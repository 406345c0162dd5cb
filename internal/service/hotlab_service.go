package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imena-mn/nmflow/internal/domain/hotlab"
	"github.com/imena-mn/nmflow/pkg/metrics"
)

// HotLabService manages the radiopharmacy inventory backing the hot lab
// side chamber: products, received tracer lots and prepared doses.
type HotLabService struct {
	repo     hotlab.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewHotLabService(repo hotlab.Repository, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *HotLabService {
	return &HotLabService{
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  collector,
		log:      log,
		now:      time.Now,
	}
}

func (s *HotLabService) CreateProduct(ctx context.Context, p *hotlab.Product, callerID uuid.UUID, callerRole string, ip string) (*hotlab.Product, error) {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(p.Isotope) == "" {
		errs = append(errs, "isotope is required")
	}
	if !p.Unit.IsValid() {
		errs = append(errs, "unit is invalid")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		s.log.Error("failed to create product", zap.Error(err))
		return nil, fmt.Errorf("creating product: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "hotlab_product",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})
	return p, nil
}

func (s *HotLabService) ReceiveLot(ctx context.Context, cmd *hotlab.CreateLotCommand, callerID uuid.UUID, callerRole string, ip string) (*hotlab.TracerLot, error) {
	var errs []string
	if strings.TrimSpace(cmd.LotNumber) == "" {
		errs = append(errs, "lot_number is required")
	}
	if cmd.ExpiryDate.IsZero() {
		errs = append(errs, "expiry_date is required")
	}
	if !cmd.Unit.IsValid() {
		errs = append(errs, "unit is invalid")
	}
	if cmd.QuantityReceived <= 0 {
		errs = append(errs, "quantity_received must be positive")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if _, err := s.repo.GetProduct(ctx, cmd.ProductID); err != nil {
		return nil, err
	}

	received := cmd.ReceivedDate
	if received.IsZero() {
		received = s.now()
	}

	lot := &hotlab.TracerLot{
		ProductID:           cmd.ProductID,
		LotNumber:           strings.TrimSpace(cmd.LotNumber),
		ExpiryDate:          cmd.ExpiryDate,
		CalibrationDateTime: cmd.CalibrationDateTime,
		InitialActivity:     cmd.InitialActivity,
		Unit:                cmd.Unit,
		ReceivedDate:        received,
		QuantityReceived:    cmd.QuantityReceived,
		Notes:               cmd.Notes,
	}

	if err := s.repo.CreateLot(ctx, lot); err != nil {
		s.log.Error("failed to create tracer lot", zap.Error(err))
		return nil, fmt.Errorf("creating tracer lot: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "tracer_lot",
		ResourceID:   lot.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("tracer lot received",
		zap.String("lot_id", lot.ID.String()),
		zap.String("lot_number", lot.LotNumber),
	)
	return lot, nil
}

// PrepareDose records a dose drawn from a lot. Expired lots are refused.
func (s *HotLabService) PrepareDose(ctx context.Context, cmd *hotlab.CreatePreparationCommand, callerID uuid.UUID, callerRole string, ip string) (*hotlab.Preparation, error) {
	if cmd.ActivityPrepared <= 0 {
		return nil, hotlab.ErrInvalidActivity
	}
	if !cmd.Unit.IsValid() {
		return nil, hotlab.ErrInvalidUnit
	}

	lot, err := s.repo.GetLot(ctx, cmd.TracerLotID)
	if err != nil {
		return nil, err
	}

	at := cmd.PreparationDateTime
	if at.IsZero() {
		at = s.now()
	}
	if lot.IsExpiredAt(at) {
		return nil, hotlab.ErrLotExpired
	}

	prep := &hotlab.Preparation{
		TracerLotID:         cmd.TracerLotID,
		PatientID:           cmd.PatientID,
		ExamType:            cmd.ExamType,
		ActivityPrepared:    cmd.ActivityPrepared,
		Unit:                cmd.Unit,
		PreparationDateTime: at,
		PreparedBy:          strings.TrimSpace(cmd.PreparedBy),
		Notes:               cmd.Notes,
	}

	if err := s.repo.CreatePreparation(ctx, prep); err != nil {
		s.log.Error("failed to create preparation", zap.Error(err))
		return nil, fmt.Errorf("creating preparation: %w", err)
	}

	s.metrics.DosePrepared()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "preparation",
		ResourceID:   prep.ID.String(),
		IPAddress:    ip,
	})
	return prep, nil
}

// Inventory returns the full hot lab state for the side chamber view.
func (s *HotLabService) Inventory(ctx context.Context) (*hotlab.Inventory, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	lots, err := s.repo.ListLots(ctx)
	if err != nil {
		return nil, err
	}
	preparations, err := s.repo.ListPreparations(ctx)
	if err != nil {
		return nil, err
	}
	return &hotlab.Inventory{Products: products, Lots: lots, Preparations: preparations}, nil
}
