package workflow

import (
	"fmt"

	"github.com/imena-mn/nmflow/internal/domain/patient"
	"github.com/imena-mn/nmflow/internal/domain/room"
)

// completionMessage renders the French ledger line for a completed stage.
// The wording is part of the stored record, not a presentation concern, so
// it lives with the engine.
func completionMessage(roomID room.ID, form patient.FormData) string {
	switch roomID {
	case room.Request:
		return fmt.Sprintf("Demande complétée pour %s.", formString(form, "requestedExam", "examen non spécifié"))
	case room.Appointment:
		return fmt.Sprintf("RDV planifié pour le %s à %s.",
			formString(form, "dateRdv", "N/A"), formString(form, "heureRdv", "N/A"))
	case room.Consultation:
		return "Consultation terminée."
	case room.Injection:
		injected := formString(form, "injectedActivity", "")
		if injected == "" {
			injected = formString(form, "mibiInjectedActivity", "N/A")
		}
		product := formString(form, "coldMolecule", "")
		if product == "" {
			if formString(form, "mibiInjectedActivity", "") != "" {
				product = "MIBI"
			} else {
				product = "N/A"
			}
		}
		return fmt.Sprintf("Injection de %s (%s) enregistrée.", injected, product)
	case room.Examination:
		return fmt.Sprintf("Examen saisi (Qualité: %s).", formString(form, "qualiteImages", "N/A"))
	case room.Report:
		return "Compte Rendu rédigé."
	case room.Withdrawal:
		return fmt.Sprintf("Retrait CR effectué par %s. Le dossier du patient a été archivé.",
			formString(form, "retirePar", "N/A"))
	default:
		return "Action complétée."
	}
}

func entryMessage(r room.Room) string {
	return "Entré dans " + r.Name
}

func formString(form patient.FormData, key, fallback string) string {
	if v, ok := form[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
