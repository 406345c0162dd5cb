package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 7, 22, 8, 15, 0, 0, time.UTC)}
	return NewEngine(room.DefaultGraph(), clk.Now), clk
}

// seedPatient builds an aggregate already sitting in the given room with a
// single open ledger entry, bypassing the intake path.
func seedPatient(roomID room.ID, data patient.RoomDataMap) *patient.Patient {
	entry := time.Date(2024, 7, 22, 8, 0, 0, 0, time.UTC)
	if data == nil {
		data = patient.RoomDataMap{}
	}
	return &patient.Patient{
		ID:            uuid.New(),
		CreatedAt:     entry,
		Name:          "Jean Dupont",
		DateOfBirth:   time.Date(1965, 5, 10, 0, 0, 0, 0, time.UTC),
		CurrentRoomID: roomID,
		StatusInRoom:  patient.StatusWaiting,
		History: []patient.HistoryEntry{{
			RoomID:        roomID,
			EntryDate:     entry,
			StatusMessage: "Entré dans " + string(roomID),
		}},
		RoomData: data,
	}
}

func TestNewPatientIntake(t *testing.T) {
	eng, clk := newTestEngine(t)

	p, err := eng.NewPatient(NewPatientCommand{
		Name:        "  Jean Dupont ",
		DateOfBirth: time.Date(1965, 5, 10, 0, 0, 0, 0, time.UTC),
		Phone:       "0612345678",
		Email:       "Jean.Dupont@Example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Jean Dupont", p.Name)
	assert.Equal(t, "jean.dupont@example.com", p.Email)
	assert.Equal(t, room.Request, p.CurrentRoomID)
	assert.Equal(t, patient.StatusWaiting, p.StatusInRoom)
	assert.Equal(t, clk.Now(), p.CreatedAt)

	require.Len(t, p.History, 1)
	assert.Equal(t, "Patient créé.", p.History[0].StatusMessage)
	assert.True(t, p.History[0].IsOpen())
	assert.Empty(t, p.RoomData)
}

func TestNewPatientValidation(t *testing.T) {
	eng, clk := newTestEngine(t)

	_, err := eng.NewPatient(NewPatientCommand{Name: "   "})
	assert.ErrorIs(t, err, patient.ErrNameRequired)

	_, err = eng.NewPatient(NewPatientCommand{
		Name:        "Jean Dupont",
		DateOfBirth: clk.Now().AddDate(1, 0, 0),
	})
	assert.ErrorIs(t, err, patient.ErrInvalidDateOfBirth)
}

func TestNewPatientWithRequestData(t *testing.T) {
	eng, clk := newTestEngine(t)
	now := clk.Now()

	p, err := eng.NewPatient(NewPatientCommand{
		Name:        "Jean Dupont",
		DateOfBirth: time.Date(1965, 5, 10, 0, 0, 0, 0, time.UTC),
		RequestData: patient.FormData{"requestedExam": "Scintigraphie Osseuse"},
	})
	require.NoError(t, err)

	assert.Equal(t, room.Appointment, p.CurrentRoomID)
	assert.Equal(t, patient.StatusWaiting, p.StatusInRoom)

	require.Len(t, p.History, 3)
	require.NotNil(t, p.History[0].ExitDate)
	assert.Equal(t, now, *p.History[0].ExitDate)
	assert.Equal(t, "Demande complétée pour Scintigraphie Osseuse.", p.History[1].StatusMessage)
	require.NotNil(t, p.History[1].ExitDate)
	assert.Equal(t, "Entré dans Rendez-vous", p.History[2].StatusMessage)
	assert.Equal(t, now.Add(tieBreak), p.History[2].EntryDate)
	assert.True(t, p.History[2].IsOpen())

	assert.Equal(t, "Scintigraphie Osseuse", p.RoomData[room.Request]["requestedExam"])
}

func TestSubmitRoomFormAdvances(t *testing.T) {
	eng, clk := newTestEngine(t)
	p := seedPatient(room.Request, nil)

	next, err := eng.SubmitRoomForm(p, room.Request, patient.FormData{
		"requestedExam": "Scintigraphie Thyroïdienne",
	})
	require.NoError(t, err)

	assert.Equal(t, room.Appointment, next.CurrentRoomID)
	require.Len(t, next.History, 3)
	require.NotNil(t, next.History[0].ExitDate)
	assert.Equal(t, clk.Now(), *next.History[0].ExitDate)
	assert.Equal(t, "Demande complétée pour Scintigraphie Thyroïdienne.", next.History[1].StatusMessage)
}

func TestSubmitRoomFormWrongRoom(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Consultation, nil)

	_, err := eng.SubmitRoomForm(p, room.Injection, patient.FormData{})
	assert.ErrorIs(t, err, patient.ErrInvalidTransition)
}

func TestSubmitRoomFormUnknownRoom(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Consultation, nil)

	_, err := eng.SubmitRoomForm(p, room.ID("SAS"), patient.FormData{})
	assert.ErrorIs(t, err, room.ErrUnknownRoom)
}

func TestSubmitRoomFormMergePreservesKeys(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Appointment, patient.RoomDataMap{
		room.Appointment: {"notes": "patient claustrophobe"},
	})

	next, err := eng.SubmitRoomForm(p, room.Appointment, patient.FormData{
		"dateRdv":  "2024-07-25",
		"heureRdv": "08:30",
	})
	require.NoError(t, err)

	got := next.RoomData[room.Appointment]
	assert.Equal(t, "patient claustrophobe", got["notes"])
	assert.Equal(t, "2024-07-25", got["dateRdv"])
	assert.Equal(t, "RDV planifié pour le 2024-07-25 à 08:30.", next.History[1].StatusMessage)
}

func TestSubmitInjectionDualWrite(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Injection, patient.RoomDataMap{
		room.Request: {"requestedExam": "Scintigraphie Osseuse"},
	})

	form := patient.FormData{
		"coldMolecule":     "HDP",
		"injectedActivity": "700 MBq",
		"injectionTime":    "10:15",
		"injectionPoint":   "Bras gauche",
	}
	next, err := eng.SubmitRoomForm(p, room.Injection, form)
	require.NoError(t, err)

	inj := next.RoomData[room.Injection]
	assert.Equal(t, "HDP", inj["produitInjecte"])
	assert.Equal(t, "700 MBq", inj["dose"])
	assert.Equal(t, "10:15", inj["heureInjection"])
	assert.Equal(t, "Bras gauche", inj["voieAdministration"])

	bone, ok := next.RoomData[room.Consultation]["boneData"].(map[string]any)
	require.True(t, ok)
	details, ok := bone["injectionDetails"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "HDP", details["coldMolecule"])
	assert.Equal(t, "700 MBq", details["injectedActivity"])

	assert.Equal(t, "Injection de 700 MBq (HDP) enregistrée.", next.History[1].StatusMessage)
	assert.Equal(t, room.Examination, next.CurrentRoomID)
}

func TestSubmitInjectionMIBIFallbacks(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Injection, patient.RoomDataMap{
		room.Request: {"requestedExam": "Scintigraphie Parathyroïdienne"},
	})

	next, err := eng.SubmitRoomForm(p, room.Injection, patient.FormData{
		"mibiInjectedActivity": "740 MBq",
		"injectionTimeMIBI":    "09:05",
		"injectionSite":        "Main droite",
	})
	require.NoError(t, err)

	inj := next.RoomData[room.Injection]
	assert.Equal(t, "740 MBq", inj["produitInjecte"])
	assert.Equal(t, "740 MBq", inj["dose"])
	assert.Equal(t, "09:05", inj["heureInjection"])
	assert.Equal(t, "Main droite", inj["voieAdministration"])

	_, ok := next.RoomData[room.Consultation]["parathyroidData"]
	assert.True(t, ok)
	assert.Equal(t, "Injection de 740 MBq (MIBI) enregistrée.", next.History[1].StatusMessage)
}

func TestSubmitInjectionUnknownExamSkipsProjection(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Injection, patient.RoomDataMap{
		room.Request: {"requestedExam": "IRM cérébrale"},
	})

	next, err := eng.SubmitRoomForm(p, room.Injection, patient.FormData{
		"coldMolecule": "HDP",
	})
	require.NoError(t, err)

	assert.NotNil(t, next.RoomData[room.Injection])
	_, ok := next.RoomData[room.Consultation]
	assert.False(t, ok)
}

func TestSubmitWithdrawalArchives(t *testing.T) {
	eng, clk := newTestEngine(t)
	p := seedPatient(room.Withdrawal, nil)

	next, err := eng.SubmitRoomForm(p, room.Withdrawal, patient.FormData{"retirePar": "Patient"})
	require.NoError(t, err)

	assert.Equal(t, room.Archive, next.CurrentRoomID)
	assert.Equal(t, patient.StatusSeen, next.StatusInRoom)

	require.Len(t, next.History, 3)
	assert.Equal(t,
		"Retrait CR effectué par Patient. Le dossier du patient a été archivé.",
		next.History[1].StatusMessage)

	last := next.History[2]
	assert.Equal(t, room.Archive, last.RoomID)
	assert.Equal(t, "Dossier archivé.", last.StatusMessage)
	require.NotNil(t, last.ExitDate)
	assert.Equal(t, last.EntryDate, *last.ExitDate)
	assert.Equal(t, clk.Now().Add(tieBreak), last.EntryDate)
}

func TestSubmitInTerminalRoom(t *testing.T) {
	eng, _ := newTestEngine(t)

	for _, id := range []room.ID{room.Archive, room.Generator} {
		p := seedPatient(id, nil)
		next, err := eng.SubmitRoomForm(p, id, patient.FormData{})
		require.NoError(t, err)

		assert.Equal(t, id, next.CurrentRoomID)
		assert.Equal(t, patient.StatusSeen, next.StatusInRoom)
		require.Len(t, next.History, 2)
		assert.Equal(t, "Action complétée.", next.History[1].StatusMessage)
		assert.True(t, next.History[1].IsOpen())
	}
}

func TestMovePatient(t *testing.T) {
	eng, clk := newTestEngine(t)
	p := seedPatient(room.Examination, nil)

	next, err := eng.MovePatient(p, room.Injection)
	require.NoError(t, err)

	assert.Equal(t, room.Injection, next.CurrentRoomID)
	assert.Equal(t, patient.StatusWaiting, next.StatusInRoom)

	require.Len(t, next.History, 3)
	require.NotNil(t, next.History[0].ExitDate)

	moved := next.History[1]
	assert.Equal(t, room.Examination, moved.RoomID)
	assert.Equal(t, "Déplacé manuellement vers Injection.", moved.StatusMessage)
	require.NotNil(t, moved.ExitDate)

	opened := next.History[2]
	assert.Equal(t, room.Injection, opened.RoomID)
	assert.Equal(t, "Entré dans Injection", opened.StatusMessage)
	assert.Equal(t, clk.Now().Add(tieBreak), opened.EntryDate)
	assert.True(t, opened.IsOpen())
}

func TestMovePatientUnknownTarget(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Examination, nil)

	_, err := eng.MovePatient(p, room.ID("COULOIR"))
	assert.ErrorIs(t, err, room.ErrUnknownRoom)
}

func TestSubmitDoesNotMutateInput(t *testing.T) {
	eng, _ := newTestEngine(t)
	p := seedPatient(room.Request, patient.RoomDataMap{
		room.Request: {"indications": map[string]any{"autres": "Douleurs osseuses"}},
	})

	_, err := eng.SubmitRoomForm(p, room.Request, patient.FormData{
		"requestedExam": "Scintigraphie Osseuse",
	})
	require.NoError(t, err)

	assert.Equal(t, room.Request, p.CurrentRoomID)
	require.Len(t, p.History, 1)
	assert.True(t, p.History[0].IsOpen())
	_, ok := p.RoomData[room.Request]["requestedExam"]
	assert.False(t, ok)
}

// Walking the whole pathway must keep the ledger strictly ordered and leave
// at most one open entry at any point.
func TestFullPathwayInvariants(t *testing.T) {
	eng, clk := newTestEngine(t)

	p, err := eng.NewPatient(NewPatientCommand{
		Name:        "Sophie Martin",
		DateOfBirth: time.Date(1982, 11, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	forms := []struct {
		roomID room.ID
		form   patient.FormData
	}{
		{room.Request, patient.FormData{"requestedExam": "Scintigraphie Osseuse"}},
		{room.Appointment, patient.FormData{"dateRdv": "2024-07-25", "heureRdv": "08:30"}},
		{room.Consultation, patient.FormData{"taille": "170", "poids": "65"}},
		{room.Injection, patient.FormData{"coldMolecule": "HDP", "injectedActivity": "700 MBq"}},
		{room.Examination, patient.FormData{"qualiteImages": "Bonne"}},
		{room.Report, patient.FormData{"conclusionCr": "RAS"}},
		{room.Withdrawal, patient.FormData{"retirePar": "Patient"}},
	}

	for _, step := range forms {
		clk.Advance(10 * time.Minute)
		p, err = eng.SubmitRoomForm(p, step.roomID, step.form)
		require.NoError(t, err, "room %s", step.roomID)

		open := 0
		for i, h := range p.History {
			if h.IsOpen() {
				open++
			}
			if i > 0 {
				assert.True(t, p.History[i].EntryDate.After(p.History[i-1].EntryDate),
					"entry %d not after entry %d", i, i-1)
			}
		}
		assert.LessOrEqual(t, open, 1)
	}

	assert.Equal(t, room.Archive, p.CurrentRoomID)
	assert.Equal(t, patient.StatusSeen, p.StatusInRoom)
	for _, h := range p.History {
		assert.False(t, h.IsOpen())
	}
}
