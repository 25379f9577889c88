package address

import (
	"errors"
	"fmt"
)

var (
	// -- Resource State --
	ErrAddressNotFound = errors.New("address not found")

	// -- Validation & Input --
	ErrInvalidAddressID = errors.New("invalid address id")
	ErrMissingField     = errors.New("missing required field")
)

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
