package permission

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind   = errors.New("unknown permission kind")
	ErrUnknownStatus = errors.New("unknown permission status")
)

// QueryFailedError means the device failed while checking or requesting
// one kind. That kind is left undetermined.
type QueryFailedError struct {
	Kind Kind
	Err  error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("failed to query %s permission: %v", e.Kind, e.Err)
}

func (e *QueryFailedError) Unwrap() error {
	return e.Err
}
