package identity

import (
	"context"
	"database/sql"
	"errors"

	"grocer-be/internal/db"
	"grocer-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateUser(ctx context.Context, user *User) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateUser"),
	)

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, user.ID, user.Email, user.PasswordHash, user.FullName).Scan(&user.CreatedAt)
	if err != nil {
		if db.IsCode(err, db.PgUniqueViolation) {
			return ErrEmailExists
		}
		log.Error("failed to insert user", zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, full_name, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) CreateSession(ctx context.Context, session *Session) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, session.ID, session.UserID, session.ExpiresAt).Scan(&session.CreatedAt)
}

func (r *repository) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	var s Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`, sessionID).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
