package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/exam"
	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
)

// tieBreak keeps ledger timestamps strictly ordered when a close and the
// following open happen within the same clock reading.
const tieBreak = time.Millisecond

// Engine is the single authority for mutating a patient's room-progress
// state. It is pure: every operation resolves its graph lookups first, then
// applies the whole transition to a deep copy, so the caller's aggregate is
// never left half-updated.
type Engine struct {
	rooms *room.Graph
	now   func() time.Time
}

// NewEngine builds an engine over the given room graph. The clock is
// injectable for tests; pass nil for time.Now.
func NewEngine(rooms *room.Graph, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{rooms: rooms, now: now}
}

type NewPatientCommand struct {
	Name            string
	DateOfBirth     time.Time
	Address         string
	Phone           string
	Email           string
	ReferringEntity *patient.ReferringEntity
	CreatedBy       uuid.UUID

	// RequestData, when present, completes the request stage in the same
	// operation: the patient is advanced straight into the appointment room.
	RequestData patient.FormData
}

// NewPatient constructs a patient in the request room with an open ledger
// entry. When request data is supplied the regular advance primitive is
// reused, so intake and form submission share one state machine.
func (e *Engine) NewPatient(cmd NewPatientCommand) (*patient.Patient, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, patient.ErrNameRequired
	}
	if cmd.DateOfBirth.After(e.now()) {
		return nil, patient.ErrInvalidDateOfBirth
	}

	now := e.now()
	p := &patient.Patient{
		ID:              uuid.New(),
		CreatedAt:       now,
		Name:            strings.TrimSpace(cmd.Name),
		DateOfBirth:     cmd.DateOfBirth,
		Address:         cmd.Address,
		Phone:           strings.TrimSpace(cmd.Phone),
		Email:           strings.ToLower(strings.TrimSpace(cmd.Email)),
		ReferringEntity: cmd.ReferringEntity,
		CurrentRoomID:   room.Request,
		StatusInRoom:    patient.StatusWaiting,
		History: []patient.HistoryEntry{{
			RoomID:        room.Request,
			EntryDate:     now,
			StatusMessage: "Patient créé.",
		}},
		RoomData:  patient.RoomDataMap{},
		CreatedBy: cmd.CreatedBy,
	}

	if len(cmd.RequestData) == 0 {
		return p, nil
	}
	return e.SubmitRoomForm(p, room.Request, cmd.RequestData)
}

// SubmitRoomForm records the submitted form for the room, closes the current
// visit, appends the completion entry and advances the patient to the next
// room (or marks them seen in a terminal room). The input patient is not
// mutated.
func (e *Engine) SubmitRoomForm(p *patient.Patient, roomID room.ID, form patient.FormData) (*patient.Patient, error) {
	if _, err := e.rooms.Get(roomID); err != nil {
		return nil, err
	}
	if p.CurrentRoomID != roomID {
		return nil, fmt.Errorf("%w: patient %s is in %q, got form for %q",
			patient.ErrInvalidTransition, p.ID, p.CurrentRoomID, roomID)
	}

	// Resolve the whole route before touching the clone.
	var next room.Room
	nextID, hasNext, err := e.rooms.Next(roomID)
	if err != nil {
		return nil, err
	}
	if hasNext {
		if next, err = e.rooms.Get(nextID); err != nil {
			return nil, err
		}
	}

	cp := p.Clone()
	now := e.now()

	e.mergeFormData(cp, roomID, form)

	if idx := cp.OpenEntryIndex(roomID); idx >= 0 {
		exit := now
		cp.History[idx].ExitDate = &exit
	}

	completion := patient.HistoryEntry{
		RoomID:        roomID,
		EntryDate:     now,
		StatusMessage: completionMessage(roomID, form),
	}
	if hasNext {
		exit := now
		completion.ExitDate = &exit
	}
	cp.History = append(cp.History, completion)

	switch {
	case hasNext && nextID == room.Archive:
		// Archival is instantaneous: the terminal entry opens and closes at
		// the same moment and the patient is immediately seen.
		at := now.Add(tieBreak)
		cp.CurrentRoomID = nextID
		cp.StatusInRoom = patient.StatusSeen
		cp.History = append(cp.History, patient.HistoryEntry{
			RoomID:        nextID,
			EntryDate:     at,
			ExitDate:      &at,
			StatusMessage: "Dossier archivé.",
		})
	case hasNext:
		cp.CurrentRoomID = nextID
		cp.StatusInRoom = patient.StatusWaiting
		cp.History = append(cp.History, patient.HistoryEntry{
			RoomID:        nextID,
			EntryDate:     now.Add(tieBreak),
			StatusMessage: entryMessage(next),
		})
	default:
		cp.StatusInRoom = patient.StatusSeen
	}

	return cp, nil
}

// MovePatient relocates a patient outside the normal sequence. There is no
// reachability check: manual moves are a supervisory override of the graph
// ordering.
func (e *Engine) MovePatient(p *patient.Patient, targetID room.ID) (*patient.Patient, error) {
	target, err := e.rooms.Get(targetID)
	if err != nil {
		return nil, err
	}

	cp := p.Clone()
	now := e.now()

	if idx := cp.OpenEntryIndex(cp.CurrentRoomID); idx >= 0 {
		exit := now
		cp.History[idx].ExitDate = &exit
	}

	moved := now
	cp.History = append(cp.History,
		patient.HistoryEntry{
			RoomID:        cp.CurrentRoomID,
			EntryDate:     now,
			ExitDate:      &moved,
			StatusMessage: fmt.Sprintf("Déplacé manuellement vers %s.", target.Name),
		},
		patient.HistoryEntry{
			RoomID:        targetID,
			EntryDate:     now.Add(tieBreak),
			StatusMessage: entryMessage(target),
		},
	)

	cp.CurrentRoomID = targetID
	cp.StatusInRoom = patient.StatusWaiting
	return cp, nil
}

// AttachDocument records uploaded file metadata on the patient. File contents
// live outside the core; only the descriptor is kept with the dossier.
func (e *Engine) AttachDocument(p *patient.Patient, name, contentType string) *patient.Patient {
	cp := p.Clone()
	cp.Documents = append(cp.Documents, patient.Document{
		ID:          uuid.New(),
		Name:        name,
		ContentType: contentType,
		UploadedAt:  e.now(),
	})
	return cp
}

// mergeFormData stores the payload for the room. The injection room is
// special-cased: the raw form is normalized into the injection payload and
// additionally projected under the exam-specific consultation sub-payload,
// a denormalization for display convenience. When the requested exam is
// unknown the projection is skipped silently.
func (e *Engine) mergeFormData(cp *patient.Patient, roomID room.ID, form patient.FormData) {
	if roomID != room.Injection {
		cp.RoomData.Merge(roomID, form)
		return
	}

	cp.RoomData.Merge(room.Injection, exam.NormalizeInjection(form).Map())

	requested, ok := cp.RequestedExam()
	if !ok {
		return
	}
	key, ok := exam.ConsultationKey(exam.Type(requested))
	if !ok {
		return
	}

	cp.RoomData.Merge(room.Consultation, patient.FormData{})
	consult := cp.RoomData[room.Consultation]
	sub, _ := consult[key].(map[string]any)
	if sub == nil {
		sub = map[string]any{}
	}
	details := make(map[string]any, len(form))
	for k, v := range form {
		details[k] = v
	}
	sub["injectionDetails"] = details
	consult[key] = sub
}
