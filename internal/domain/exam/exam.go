package exam

// Type is one of the scintigraphy exams the department performs. Values are
// the display names used on request forms and in stored snapshots.
type Type string

const (
	Bone          Type = "Scintigraphie Osseuse"
	Parathyroid   Type = "Scintigraphie Parathyroïdienne"
	RenalDMSA     Type = "Scintigraphie Rénale DMSA"
	RenalDTPAMAG3 Type = "Scintigraphie Rénale DTPA/MAG3"
	Thyroid       Type = "Scintigraphie Thyroïdienne"
)

func All() []Type {
	return []Type{Bone, Parathyroid, RenalDMSA, RenalDTPAMAG3, Thyroid}
}

func (t Type) IsValid() bool {
	switch t {
	case Bone, Parathyroid, RenalDMSA, RenalDTPAMAG3, Thyroid:
		return true
	}
	return false
}

// consultationKeys maps an exam type to the sub-payload key under the
// consultation room's data that holds the exam-specific form. Injection
// details are projected into that sub-payload so later views can show them
// alongside the specialized consultation form.
var consultationKeys = map[Type]string{
	Bone:          "boneData",
	Parathyroid:   "parathyroidData",
	RenalDMSA:     "renalDMSAData",
	RenalDTPAMAG3: "renalDTPAMAG3Data",
	Thyroid:       "thyroidData",
}

// ConsultationKey returns the consultation sub-payload key for the exam, or
// false for unrecognized exam names.
func ConsultationKey(t Type) (string, bool) {
	k, ok := consultationKeys[t]
	return k, ok
}

// InjectionRecord is the normalized injection-room payload derived from the
// exam-specific injection form fields.
type InjectionRecord struct {
	Product string `json:"produitInjecte"`
	Dose    string `json:"dose"`
	Time    string `json:"heureInjection"`
	Route   string `json:"voieAdministration"`
}

// NormalizeInjection maps the raw injection form onto the normalized record.
// The exam-specific forms name their fields differently (e.g. the parathyroid
// protocol records a MIBI activity instead of a cold molecule), so each
// normalized field falls back through the known aliases.
func NormalizeInjection(form map[string]any) InjectionRecord {
	return InjectionRecord{
		Product: firstString(form, "coldMolecule", "mibiInjectedActivity", "injectedActivity"),
		Dose:    firstString(form, "injectedActivity", "mibiInjectedActivity"),
		Time:    firstString(form, "injectionTime", "injectionTimeMIBI"),
		Route:   firstString(form, "injectionPoint", "injectionSite"),
	}
}

// Map returns the record as a plain form payload.
func (r InjectionRecord) Map() map[string]any {
	return map[string]any{
		"produitInjecte":     r.Product,
		"dose":               r.Dose,
		"heureInjection":     r.Time,
		"voieAdministration": r.Route,
	}
}

func firstString(form map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := form[k].(string); ok && v != "" {
			return v
		}
	}
	return "N/A"
}
