package coupon

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"grocer-be/internal/logger"

	"go.uber.org/zap"
)

// Repository runs the server-side eligibility check for a code. It checks
// existence, expiry, usage limits and per-user eligibility in one call.
type Repository interface {
	Validate(ctx context.Context, code, userID string) (*Validation, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Validate(ctx context.Context, code, userID string) (*Validation, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ValidateCoupon"),
		zap.String("code", code),
	)

	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT is_coupon_valid_for_user($1, $2)`,
		code, userID,
	).Scan(&raw)
	if err != nil {
		log.Error("coupon validation call failed", zap.Error(err))
		return nil, err
	}

	var v Validation
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Error("coupon validation decode failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedValidation, err)
	}
	if v.Valid && v.Offer == nil {
		return nil, fmt.Errorf("%w: valid result without offer", ErrMalformedValidation)
	}

	log.Debug("coupon validated", zap.Bool("valid", v.Valid))
	return &v, nil
}
