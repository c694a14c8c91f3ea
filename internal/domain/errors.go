package domain

import "errors"

// Error kinds. Wrap with fmt.Errorf("...: %w", Err...) and test with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrAccessDenied = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("store unavailable")
	ErrIntegrity    = errors.New("integrity violation")
	ErrInvalidPlan  = errors.New("invalid plan")
)
