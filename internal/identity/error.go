package identity

import "errors"

var (
	// -- Authentication/Authorization --
	ErrUnauthenticated    = errors.New("user not authenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("authentication session expired")
	ErrInvalidToken       = errors.New("invalid token")

	// -- Validation & Input --
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	// -- Resource State --
	ErrEmailExists  = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)
