package room

import "fmt"

// ID identifies a stage of the patient pathway. Values match the
// identifiers used in stored patient snapshots.
type ID string

const (
	Request      ID = "DEMANDE"
	Appointment  ID = "RENDEZVOUS"
	Consultation ID = "CONSULTATION"
	Generator    ID = "GENERATEUR" // hot lab, side chamber outside the patient sequence
	Injection    ID = "INJECTION"
	Examination  ID = "EXAMEN"
	Report       ID = "COMPTE_RENDU"
	Withdrawal   ID = "RETRAIT_CR_SORTIE"
	Archive      ID = "ARCHIVE"
)

func (id ID) IsValid() bool {
	switch id {
	case Request, Appointment, Consultation, Generator, Injection, Examination, Report, Withdrawal, Archive:
		return true
	}
	return false
}

// Room is a static pathway stage descriptor. NextID is empty for terminal
// rooms and for side chambers that are not part of the patient sequence.
type Room struct {
	ID           ID       `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	NextID       ID       `json:"next_room_id,omitempty"`
	AllowedRoles []string `json:"allowed_roles"`
}

func (r Room) IsTerminal() bool {
	return r.NextID == ""
}

// Allows reports whether the given staff role may act in this room.
func (r Room) Allows(role string) bool {
	for _, a := range r.AllowedRoles {
		if a == role {
			return true
		}
	}
	return false
}

// Graph is the immutable room configuration, loaded once at startup.
type Graph struct {
	rooms map[ID]Room
	order []ID
}

// NewGraph validates the configuration: every NextID must resolve to a
// configured room and following NextID links from any room must reach a
// terminal room without revisiting one.
func NewGraph(rooms []Room) (*Graph, error) {
	g := &Graph{rooms: make(map[ID]Room, len(rooms)), order: make([]ID, 0, len(rooms))}
	for _, r := range rooms {
		if _, dup := g.rooms[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate room %q", ErrInvalidGraph, r.ID)
		}
		g.rooms[r.ID] = r
		g.order = append(g.order, r.ID)
	}

	for _, r := range rooms {
		if r.NextID == "" {
			continue
		}
		seen := map[ID]bool{r.ID: true}
		cur := r.NextID
		for cur != "" {
			next, ok := g.rooms[cur]
			if !ok {
				return nil, fmt.Errorf("%w: room %q links to unknown room %q", ErrInvalidGraph, r.ID, cur)
			}
			if seen[cur] {
				return nil, fmt.Errorf("%w: cycle through room %q", ErrInvalidGraph, cur)
			}
			seen[cur] = true
			cur = next.NextID
		}
	}

	return g, nil
}

// Get looks a room up by id. A miss is a configuration error: callers hold
// ids that should always resolve against the loaded graph.
func (g *Graph) Get(id ID) (Room, error) {
	r, ok := g.rooms[id]
	if !ok {
		return Room{}, fmt.Errorf("%w: %q", ErrUnknownRoom, id)
	}
	return r, nil
}

// Next returns the successor of the given room, or false for terminal rooms.
func (g *Graph) Next(id ID) (ID, bool, error) {
	r, err := g.Get(id)
	if err != nil {
		return "", false, err
	}
	if r.NextID == "" {
		return "", false, nil
	}
	return r.NextID, true, nil
}

// Rooms returns the rooms in configuration order.
func (g *Graph) Rooms() []Room {
	out := make([]Room, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.rooms[id])
	}
	return out
}

// DefaultGraph is the department's standard pathway: request through archive,
// with the hot lab as a side chamber.
func DefaultGraph() *Graph {
	g, err := NewGraph(DefaultRooms())
	if err != nil {
		// The default configuration is static; a validation failure here is
		// a programming error.
		panic(err)
	}
	return g
}

func DefaultRooms() []Room {
	return []Room{
		{
			ID:           Request,
			Name:         "Accueil et Demandes",
			Description:  "Création des patients et enregistrement des demandes d'examens.",
			NextID:       Appointment,
			AllowedRoles: []string{"reception", "admin"},
		},
		{
			ID:           Appointment,
			Name:         "Rendez-vous",
			Description:  "Planification et gestion des rendez-vous.",
			NextID:       Consultation,
			AllowedRoles: []string{"reception", "admin"},
		},
		{
			ID:           Consultation,
			Name:         "Consultation",
			Description:  "Consultations pré-examen avec les médecins.",
			NextID:       Injection,
			AllowedRoles: []string{"doctor", "admin"},
		},
		{
			ID:           Generator,
			Name:         "Gestion Labo Chaud",
			Description:  "Gestion des produits radiopharmaceutiques, lots et préparations.",
			AllowedRoles: []string{"technician", "admin"},
		},
		{
			ID:           Injection,
			Name:         "Injection",
			Description:  "Administration des traceurs aux patients.",
			NextID:       Examination,
			AllowedRoles: []string{"technician", "doctor", "admin"},
		},
		{
			ID:           Examination,
			Name:         "Examen",
			Description:  "Réalisation des examens de médecine nucléaire.",
			NextID:       Report,
			AllowedRoles: []string{"technician", "doctor", "admin"},
		},
		{
			ID:           Report,
			Name:         "Compte Rendu",
			Description:  "Rédaction et validation des comptes rendus.",
			NextID:       Withdrawal,
			AllowedRoles: []string{"doctor", "admin"},
		},
		{
			ID:           Withdrawal,
			Name:         "Retrait CR et Sortie",
			Description:  "Remise du compte rendu au patient et finalisation du dossier.",
			NextID:       Archive,
			AllowedRoles: []string{"reception", "admin"},
		},
		{
			ID:           Archive,
			Name:         "Archives",
			Description:  "Dossiers des patients archivés.",
			AllowedRoles: []string{"reception", "doctor", "admin"},
		},
	}
}
