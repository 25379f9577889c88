package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grocer-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Address, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (*Address, error)

	// Create and Update clear the user's other defaults first when the
	// address is marked default, in the same transaction.
	Create(ctx context.Context, addr *Address) error
	Update(ctx context.Context, addr *Address) error
	Deactivate(ctx context.Context, id, userID uuid.UUID) (int64, error)

	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const addressColumns = `
			id, user_id,
			name, receiver_name, phone,
			address_line1, address_line2,
			city, province, postal_code, country,
			is_default, is_active, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAddress(row scanner) (*Address, error) {
	var a Address
	err := row.Scan(
		&a.ID, &a.UserID,
		&a.Name, &a.ReceiverName, &a.Phone,
		&a.Address1, &a.Address2,
		&a.City, &a.Province, &a.Postal, &a.Country,
		&a.IsDefault, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE addresses
		SET is_default = false
		WHERE user_id = $1
		  AND is_default = true
	`, userID)
	return err
}

func (r *repository) GetByUserID(
	ctx context.Context,
	userID uuid.UUID,
) ([]*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByUserID"),
		zap.String("user_id", userID.String()),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT`+addressColumns+`
		FROM addresses
		WHERE user_id = $1
		  AND is_active = true
		ORDER BY is_default DESC, created_at DESC
	`, userID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	res := make([]*Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, a)
	}

	return res, rows.Err()
}

func (r *repository) GetByID(
	ctx context.Context,
	id, userID uuid.UUID,
) (*Address, error) {

	a, err := scanAddress(r.db.QueryRowContext(ctx, `
		SELECT`+addressColumns+`
		FROM addresses
		WHERE id = $1 AND user_id = $2 AND is_active = true
		LIMIT 1
	`, id, userID))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Address"),
			zap.String("method", "GetByID"),
			zap.Error(err),
		)
		return nil, err
	}

	return a, nil
}

func (r *repository) Create(
	ctx context.Context,
	addr *Address,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Create"),
		zap.String("address_id", addr.ID.String()),
	)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if addr.IsDefault {
			if err := clearDefault(ctx, tx, addr.UserID); err != nil {
				return err
			}
		}

		return tx.QueryRowContext(ctx, `
		INSERT INTO addresses (
			id, user_id,
			name, receiver_name, phone,
			address_line1, address_line2,
			city, province, postal_code, country,
			is_default, is_active
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7,
			$8, $9, $10, $11,
			$12, $13
		)
		RETURNING created_at
	`,
			addr.ID, addr.UserID,
			addr.Name, addr.ReceiverName, addr.Phone,
			addr.Address1, addr.Address2,
			addr.City, addr.Province, addr.Postal, addr.Country,
			addr.IsDefault, addr.IsActive,
		).Scan(&addr.CreatedAt)
	})
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) Update(
	ctx context.Context,
	addr *Address,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Update"),
		zap.String("address_id", addr.ID.String()),
	)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if addr.IsDefault {
			if err := clearDefault(ctx, tx, addr.UserID); err != nil {
				return err
			}
		}

		err := tx.QueryRowContext(ctx, `
		UPDATE addresses
		SET name = $3,
		    receiver_name = $4,
		    phone = $5,
		    address_line1 = $6,
		    address_line2 = $7,
		    city = $8,
		    province = $9,
		    postal_code = $10,
		    country = $11,
		    is_default = $12
		WHERE id = $1
		  AND user_id = $2
		  AND is_active = true
		RETURNING created_at
	`,
			addr.ID, addr.UserID,
			addr.Name, addr.ReceiverName, addr.Phone,
			addr.Address1, addr.Address2,
			addr.City, addr.Province, addr.Postal, addr.Country,
			addr.IsDefault,
		).Scan(&addr.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAddressNotFound
		}
		return err
	})
	if err != nil && !errors.Is(err, ErrAddressNotFound) {
		log.Error("update failed", zap.Error(err))
	}
	return err
}

func (r *repository) Deactivate(
	ctx context.Context,
	id, userID uuid.UUID,
) (int64, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Deactivate"),
		zap.String("address_id", id.String()),
	)
	log.Debug("Start deactivating address")

	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses
		SET is_active = false,
		    is_default = false
		WHERE id = $1
		  AND user_id = $2
		  AND is_active = true
	`, id, userID)
	if err != nil {
		log.Error("deactivate failed", zap.Error(err))
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) SetDefault(
	ctx context.Context,
	userID uuid.UUID,
	addressID uuid.UUID,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "SetDefault"),
		zap.String("user_id", userID.String()),
		zap.String("address_id", addressID.String()),
	)

	log.Debug("Start setting default address")

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := clearDefault(ctx, tx, userID); err != nil {
			log.Error("clear default failed", zap.Error(err))
			return err
		}

		res, err := tx.ExecContext(ctx, `
		UPDATE addresses
		SET is_default = true
		WHERE user_id = $1
		  AND id = $2
		  AND is_active = true
	`, userID, addressID)
		if err != nil {
			log.Error("set default failed", zap.Error(err))
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAddressNotFound
		}
		return nil
	})
}
