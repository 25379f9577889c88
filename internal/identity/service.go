package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"grocer-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the identity collaborator: it signs users in and out and answers
// whether a presented token still belongs to a live session.
type Service interface {
	SignUp(ctx context.Context, input SignUpInput) (*User, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	SignOut(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string) (*Claims, error)
}

type service struct {
	repo   Repository
	issuer *Issuer
	now    func() time.Time
}

func NewService(repo Repository, issuer *Issuer) Service {
	return &service{repo: repo, issuer: issuer, now: time.Now}
}

func (s *service) SignUp(ctx context.Context, input SignUpInput) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SignUp"),
	)

	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     input.FullName,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info("user signed up", zap.String("new_user_id", user.ID.String()))
	return user, nil
}

func (s *service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SignIn"),
	)

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load user", zap.Error(err))
		return nil, err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		log.Warn("password mismatch")
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.issuer.TTL()),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", zap.Error(err))
		return nil, err
	}

	token, expiresAt, err := s.issuer.Issue(user, session.ID)
	if err != nil {
		return nil, err
	}

	log.Info("user signed in", zap.String("session_id", session.ID.String()))
	return &SignInResult{Token: token, User: user, ExpiresAt: expiresAt}, nil
}

func (s *service) SignOut(ctx context.Context, token string) error {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		// an expired or foreign token has nothing left to revoke
		if errors.Is(err, ErrSessionExpired) {
			return nil
		}
		return err
	}

	sessionID, err := claims.SessionID()
	if err != nil {
		return ErrInvalidToken
	}

	if _, err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		logger.FromCtx(ctx).Error("failed to delete session",
			zap.String("layer", "service"),
			zap.String("method", "SignOut"),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *service) ValidateSession(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
