package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/room"
)

// StatusInRoom is the patient's state within their current room.
type StatusInRoom string

const (
	StatusWaiting StatusInRoom = "En attente"
	StatusSeen    StatusInRoom = "Traité(e)"
)

// HistoryEntry is one visit record in the patient's ledger. Entries are
// append-only; once ExitDate is set the entry is immutable.
type HistoryEntry struct {
	RoomID        room.ID    `json:"roomId"`
	EntryDate     time.Time  `json:"entryDate"`
	ExitDate      *time.Time `json:"exitDate,omitempty"`
	StatusMessage string     `json:"statusMessage"`
}

func (e HistoryEntry) IsOpen() bool {
	return e.ExitDate == nil
}

// FormData is an opaque room form payload. The engine merges payloads
// shallowly and never validates field-level semantics; that is the form
// layer's job.
type FormData map[string]any

// RoomDataMap holds one payload per room ever visited.
type RoomDataMap map[room.ID]FormData

type ReferringEntityType string

const (
	ReferringService ReferringEntityType = "service"
	ReferringCenter  ReferringEntityType = "center"
	ReferringDoctor  ReferringEntityType = "doctor"
)

type ReferringEntity struct {
	Type          ReferringEntityType `json:"type"`
	Name          string              `json:"name"`
	ContactNumber string              `json:"contactNumber,omitempty"`
	ContactEmail  string              `json:"contactEmail,omitempty"`
}

// Document is attached file metadata. File contents live outside the core.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Patient is the aggregate root. All room-progress state is mutated
// exclusively through the workflow engine; records are archived by reaching
// the terminal room, never deleted.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"creationDate"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`

	Name        string    `gorm:"column:name;type:varchar(200);not null;index" json:"name"`
	DateOfBirth time.Time `gorm:"column:date_of_birth;not null" json:"dateOfBirth"`

	Phone   string `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`
	Email   string `gorm:"column:email;type:varchar(255)" json:"email,omitempty"`
	Address string `gorm:"column:address;type:text" json:"address,omitempty"`

	ReferringEntity *ReferringEntity `gorm:"column:referring_entity;serializer:json" json:"referringEntity,omitempty"`

	CurrentRoomID room.ID      `gorm:"column:current_room_id;type:varchar(30);not null;index" json:"currentRoomId"`
	StatusInRoom  StatusInRoom `gorm:"column:status_in_room;type:varchar(20);not null;index" json:"statusInRoom"`

	History  []HistoryEntry `gorm:"column:history;serializer:json" json:"history"`
	RoomData RoomDataMap    `gorm:"column:room_data;serializer:json" json:"roomSpecificData"`

	Documents []Document `gorm:"column:documents;serializer:json" json:"documents,omitempty"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid" json:"-"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) Age() int {
	return AgeAt(p.DateOfBirth, time.Now())
}

func AgeAt(dateOfBirth, at time.Time) int {
	years := at.Year() - dateOfBirth.Year()
	if at.Month() < dateOfBirth.Month() ||
		(at.Month() == dateOfBirth.Month() && at.Day() < dateOfBirth.Day()) {
		years--
	}
	return years
}

// OpenEntryIndex returns the index of the latest entry for the given room
// without an exit date, or -1.
func (p *Patient) OpenEntryIndex(id room.ID) int {
	for i := len(p.History) - 1; i >= 0; i-- {
		if p.History[i].RoomID == id && p.History[i].IsOpen() {
			return i
		}
	}
	return -1
}

// RequestedExam returns the exam recorded on the request-room form, if any.
func (p *Patient) RequestedExam() (string, bool) {
	req, ok := p.RoomData[room.Request]
	if !ok {
		return "", false
	}
	v, ok := req["requestedExam"].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Clone returns a deep copy. The workflow engine applies every mutation to a
// clone so callers holding the previous value keep a consistent aggregate if
// a later step fails.
func (p *Patient) Clone() *Patient {
	cp := *p

	cp.History = make([]HistoryEntry, len(p.History))
	for i, e := range p.History {
		cp.History[i] = e
		if e.ExitDate != nil {
			exit := *e.ExitDate
			cp.History[i].ExitDate = &exit
		}
	}

	cp.RoomData = make(RoomDataMap, len(p.RoomData))
	for id, form := range p.RoomData {
		cp.RoomData[id] = copyForm(form)
	}

	if p.ReferringEntity != nil {
		ref := *p.ReferringEntity
		cp.ReferringEntity = &ref
	}

	if p.Documents != nil {
		cp.Documents = make([]Document, len(p.Documents))
		copy(cp.Documents, p.Documents)
	}

	return &cp
}

// Merge shallow-merges src into the payload stored for the given room: new
// keys overwrite, keys absent from src are preserved.
func (m RoomDataMap) Merge(id room.ID, src FormData) {
	dst, ok := m[id]
	if !ok {
		dst = make(FormData, len(src))
		m[id] = dst
	}
	for k, v := range src {
		dst[k] = copyValue(v)
	}
}

func copyForm(form FormData) FormData {
	out := make(FormData, len(form))
	for k, v := range form {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue deep-copies the JSON-shaped values a form payload can hold.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case FormData:
		return map[string]any(copyForm(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
