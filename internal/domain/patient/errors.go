package patient

import "errors"

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrInvalidTransition  = errors.New("submission targets a room the patient is not currently in")
	ErrNameRequired       = errors.New("patient name is required")
	ErrInvalidDateOfBirth = errors.New("date of birth cannot be in the future")
)
