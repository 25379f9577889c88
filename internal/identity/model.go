package identity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     *string
	CreatedAt    time.Time
}

// Session is the server-side record behind an issued token. Deleting it
// invalidates the token before its expiry.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SignUpInput struct {
	Email    string
	Password string
	FullName *string
}

type SignInResult struct {
	Token     string
	User      *User
	ExpiresAt time.Time
}
