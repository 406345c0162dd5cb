package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imena-mn/nmflow/internal/domain/exam"
	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
	"github.com/imena-mn/nmflow/internal/workflow"
	"github.com/imena-mn/nmflow/pkg/metrics"
)

// WorkflowService orchestrates patient transitions: it gates on room roles,
// runs the pure engine, writes the resulting snapshot through the repository
// and records the audit trail. The engine never sees persistence.
type WorkflowService struct {
	repo     patient.Repository
	engine   *workflow.Engine
	rooms    *room.Graph
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewWorkflowService(
	repo patient.Repository,
	engine *workflow.Engine,
	rooms *room.Graph,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		repo:     repo,
		engine:   engine,
		rooms:    rooms,
		auditSvc: auditSvc,
		metrics:  collector,
		log:      log,
	}
}

func (s *WorkflowService) CreatePatient(ctx context.Context, cmd *workflow.NewPatientCommand, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	if err := s.validateCreateCommand(cmd); err != nil {
		return nil, err
	}
	if err := s.requireRoomRole(room.Request, callerRole); err != nil {
		return nil, err
	}

	cmd.CreatedBy = callerID
	p, err := s.engine.NewPatient(*cmd)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.metrics.PatientCreated()
	if len(cmd.RequestData) > 0 {
		s.metrics.TransitionCompleted(string(room.Request))
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("patient created",
		zap.String("patient_id", p.ID.String()),
		zap.String("room", string(p.CurrentRoomID)),
		zap.String("created_by", callerID.String()),
	)

	return p, nil
}

// SubmitRoomForm applies a form submission and advances the patient. The
// caller's role must be allowed in the submitted room.
func (s *WorkflowService) SubmitRoomForm(ctx context.Context, patientID uuid.UUID, roomID room.ID, form patient.FormData, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	if err := s.requireRoomRole(roomID, callerRole); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	updated, err := s.engine.SubmitRoomForm(p, roomID, form)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		s.log.Error("failed to save patient after transition",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("saving patient: %w", err)
	}

	s.metrics.TransitionCompleted(string(roomID))
	if updated.CurrentRoomID == room.Archive {
		s.metrics.PatientArchived()
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "submit_form",
		ResourceType: "patient",
		ResourceID:   patientID.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"room":%q,"to":%q}`, roomID, updated.CurrentRoomID),
	})

	s.log.Info("room form submitted",
		zap.String("patient_id", patientID.String()),
		zap.String("room", string(roomID)),
		zap.String("now_in", string(updated.CurrentRoomID)),
	)

	return updated, nil
}

// MovePatient relocates a patient outside the normal sequence. Any staff role
// may move a patient; the target room's role list gates form submission, not
// presence.
func (s *WorkflowService) MovePatient(ctx context.Context, patientID uuid.UUID, targetID room.ID, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	updated, err := s.engine.MovePatient(p, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, updated); err != nil {
		s.log.Error("failed to save patient after manual move",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("saving patient: %w", err)
	}

	s.metrics.ManualMove()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "move",
		ResourceType: "patient",
		ResourceID:   patientID.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"from":%q,"to":%q}`, p.CurrentRoomID, targetID),
	})

	s.log.Info("patient moved manually",
		zap.String("patient_id", patientID.String()),
		zap.String("from", string(p.CurrentRoomID)),
		zap.String("to", string(targetID)),
		zap.String("moved_by", callerID.String()),
	)

	return updated, nil
}

// AttachDocument stores uploaded file metadata on the dossier. The file body
// itself never passes through this service.
func (s *WorkflowService) AttachDocument(ctx context.Context, patientID uuid.UUID, name, contentType string, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Fields: []string{"name is required"}}
	}

	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	updated := s.engine.AttachDocument(p, strings.TrimSpace(name), contentType)
	if err := s.repo.Save(ctx, updated); err != nil {
		s.log.Error("failed to save patient after document attach",
			zap.String("patient_id", patientID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("saving patient: %w", err)
	}

	doc := updated.Documents[len(updated.Documents)-1]
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "patient_document",
		ResourceID:   doc.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("document attached",
		zap.String("patient_id", patientID.String()),
		zap.String("document", doc.Name),
	)

	return updated, nil
}

func (s *WorkflowService) GetPatient(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole string, ip string) (*patient.Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "read",
		ResourceType: "patient",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return p, nil
}

func (s *WorkflowService) ListPatients(ctx context.Context, q *patient.ListQuery) (*patient.PagedPatients, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

// Rooms exposes the static pathway configuration for navigation views.
func (s *WorkflowService) Rooms() []room.Room {
	return s.rooms.Rooms()
}

func (s *WorkflowService) requireRoomRole(roomID room.ID, role string) error {
	r, err := s.rooms.Get(roomID)
	if err != nil {
		return err
	}
	if !r.Allows(role) {
		return ErrForbidden
	}
	return nil
}

func (s *WorkflowService) validateCreateCommand(cmd *workflow.NewPatientCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if cmd.DateOfBirth.IsZero() {
		errs = append(errs, "date_of_birth is required")
	}
	if v, ok := cmd.RequestData["requestedExam"].(string); ok && v != "" {
		if !exam.Type(v).IsValid() {
			errs = append(errs, "requested_exam is not a known exam type")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
