package hotlab

import "errors"

var (
	ErrProductNotFound = errors.New("radiopharmaceutical product not found")
	ErrLotNotFound     = errors.New("tracer lot not found")
	ErrLotExpired      = errors.New("tracer lot has expired")
	ErrInvalidUnit     = errors.New("invalid activity unit")
	ErrInvalidActivity = errors.New("prepared activity must be positive")
	ErrLotNumberTaken  = errors.New("a lot with this number already exists for the product")
)
