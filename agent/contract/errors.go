package contract

import "errors"

var (
	// ErrValidation marks malformed user input; ask the user to restate.
	ErrValidation = errors.New("validation failed")
	// ErrIdentityRequired means no contact number could be resolved; prompt
	// the user for a phone number and retry.
	ErrIdentityRequired = errors.New("contact number required")
	// ErrPersistence is a terminal gateway failure for one operation.
	ErrPersistence = errors.New("persistence gateway failed")

	// Gateway-boundary sentinels.
	ErrNotFound  = errors.New("record not found")
	ErrSlotTaken = errors.New("slot already booked")
)

// ValidationError names the field that failed to normalize so the tool
// surface can tell the user what to restate.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field string) error {
	return &ValidationError{Field: field}
}
