package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imena-mn/nmflow/internal/domain"
	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
	"github.com/imena-mn/nmflow/internal/repository/memory"
	"github.com/imena-mn/nmflow/internal/workflow"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type workflowFixture struct {
	svc       *WorkflowService
	repo      *memory.PatientRepository
	auditRepo *memory.AuditRepository
	auditSvc  *AuditService
	clock     *fakeClock
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2024, 7, 22, 8, 15, 0, 0, time.UTC)}
	repo := memory.NewPatientRepository()
	auditRepo := memory.NewAuditRepository()
	auditSvc := NewAuditService(auditRepo, zap.NewNop(), nil)
	t.Cleanup(auditSvc.Shutdown)

	rooms := room.DefaultGraph()
	engine := workflow.NewEngine(rooms, clock.Now)
	svc := NewWorkflowService(repo, engine, rooms, auditSvc, nil, zap.NewNop())

	return &workflowFixture{svc: svc, repo: repo, auditRepo: auditRepo, auditSvc: auditSvc, clock: clock}
}

func (f *workflowFixture) createPatient(t *testing.T, role string) *patient.Patient {
	t.Helper()
	p, err := f.svc.CreatePatient(context.Background(), &workflow.NewPatientCommand{
		Name:        "Durand, Marie",
		DateOfBirth: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
		RequestData: patient.FormData{"requestedExam": "Scintigraphie Osseuse"},
	}, uuid.New(), role, "127.0.0.1")
	require.NoError(t, err)
	return p
}

func TestCreatePatientPersistsAndAudits(t *testing.T) {
	f := newWorkflowFixture(t)
	callerID := uuid.New()

	p, err := f.svc.CreatePatient(context.Background(), &workflow.NewPatientCommand{
		Name:        "Durand, Marie",
		DateOfBirth: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
		RequestData: patient.FormData{"requestedExam": "Scintigraphie Osseuse"},
	}, callerID, "reception", "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, room.Appointment, p.CurrentRoomID)
	assert.Equal(t, callerID, p.CreatedBy)

	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, room.Appointment, stored.CurrentRoomID)
	assert.Len(t, stored.History, 3)

	f.auditSvc.Shutdown()
	entries := f.auditRepo.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditAction("create"), entries[0].Action)
	assert.Equal(t, "patient", entries[0].ResourceType)
	assert.Equal(t, callerID, entries[0].UserID)
}

func TestCreatePatientValidation(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.CreatePatient(context.Background(), &workflow.NewPatientCommand{
		DateOfBirth: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
	}, uuid.New(), "reception", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name is required")

	_, err = f.svc.CreatePatient(context.Background(), &workflow.NewPatientCommand{
		Name:        "Durand, Marie",
		DateOfBirth: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
		RequestData: patient.FormData{"requestedExam": "IRM cérébrale"},
	}, uuid.New(), "reception", "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "requested_exam is not a known exam type")
}

func TestCreatePatientRequiresReceptionRole(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.CreatePatient(context.Background(), &workflow.NewPatientCommand{
		Name:        "Durand, Marie",
		DateOfBirth: time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC),
	}, uuid.New(), "technician", "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitRoomFormAdvancesAndSaves(t *testing.T) {
	f := newWorkflowFixture(t)
	p := f.createPatient(t, "reception")
	f.clock.Advance(30 * time.Minute)

	updated, err := f.svc.SubmitRoomForm(context.Background(), p.ID, room.Appointment,
		patient.FormData{"dateRdv": "2024-07-25", "heureRdv": "09:30"},
		uuid.New(), "reception", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, room.Consultation, updated.CurrentRoomID)

	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, room.Consultation, stored.CurrentRoomID)
	assert.Equal(t, "RDV planifié pour le 2024-07-25 à 09:30.",
		stored.History[len(stored.History)-2].StatusMessage)
}

func TestSubmitRoomFormRoleGate(t *testing.T) {
	f := newWorkflowFixture(t)
	p := f.createPatient(t, "reception")

	_, err := f.svc.SubmitRoomForm(context.Background(), p.ID, room.Appointment,
		patient.FormData{}, uuid.New(), "technician", "")
	assert.ErrorIs(t, err, ErrForbidden)

	// The stored aggregate is untouched.
	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, room.Appointment, stored.CurrentRoomID)
}

func TestSubmitRoomFormUnknownPatient(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.svc.SubmitRoomForm(context.Background(), uuid.New(), room.Request,
		patient.FormData{}, uuid.New(), "reception", "")
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}

func TestMovePatientSavesAndAudits(t *testing.T) {
	f := newWorkflowFixture(t)
	p := f.createPatient(t, "reception")
	f.clock.Advance(time.Hour)

	updated, err := f.svc.MovePatient(context.Background(), p.ID, room.Examination,
		uuid.New(), "technician", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, room.Examination, updated.CurrentRoomID)
	assert.Equal(t, patient.StatusWaiting, updated.StatusInRoom)

	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	last := stored.History[len(stored.History)-1]
	assert.Equal(t, room.Examination, last.RoomID)
	assert.True(t, last.IsOpen())

	f.auditSvc.Shutdown()
	entries := f.auditRepo.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditAction("move"), entries[1].Action)
}

func TestMovePatientUnknownRoom(t *testing.T) {
	f := newWorkflowFixture(t)
	p := f.createPatient(t, "reception")

	_, err := f.svc.MovePatient(context.Background(), p.ID, room.ID("SAS"), uuid.New(), "admin", "")
	assert.ErrorIs(t, err, room.ErrUnknownRoom)
}

func TestAttachDocument(t *testing.T) {
	f := newWorkflowFixture(t)
	p := f.createPatient(t, "reception")

	updated, err := f.svc.AttachDocument(context.Background(), p.ID, "  ordonnance.pdf ", "application/pdf",
		uuid.New(), "reception", "127.0.0.1")
	require.NoError(t, err)
	require.Len(t, updated.Documents, 1)
	assert.Equal(t, "ordonnance.pdf", updated.Documents[0].Name)
	assert.Equal(t, "application/pdf", updated.Documents[0].ContentType)
	assert.Equal(t, f.clock.Now(), updated.Documents[0].UploadedAt)

	stored, err := f.repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Documents, 1)
	assert.Equal(t, updated.Documents[0].ID, stored.Documents[0].ID)

	f.auditSvc.Shutdown()
	entries := f.auditRepo.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "patient_document", entries[1].ResourceType)
}

func TestAttachDocumentValidation(t *testing.T) {
	f := newWorkflowFixture(t)
	p := f.createPatient(t, "reception")

	_, err := f.svc.AttachDocument(context.Background(), p.ID, "  ", "application/pdf",
		uuid.New(), "reception", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name is required")
}

func TestListPatientsClampsPaging(t *testing.T) {
	f := newWorkflowFixture(t)
	f.createPatient(t, "reception")

	page, err := f.svc.ListPatients(context.Background(), &patient.ListQuery{Page: -3, PageSize: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Patients, 1)
}

func TestRoomsExposesPathway(t *testing.T) {
	f := newWorkflowFixture(t)
	rooms := f.svc.Rooms()
	require.Len(t, rooms, 9)
	assert.Equal(t, room.Request, rooms[0].ID)
}
