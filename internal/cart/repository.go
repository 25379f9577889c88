package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"grocer-be/internal/db"
	"grocer-be/internal/logger"
	"grocer-be/internal/product"

	"go.uber.org/zap"
)

type Repository interface {
	// Probe reports ErrDataUnavailable when the cart table is missing.
	Probe(ctx context.Context) error
	ListByOwner(ctx context.Context, ownerID string) ([]*LineView, error)
	// UpsertIncrement inserts a line or adds to the quantity of the existing
	// (owner, product) line in a single statement.
	UpsertIncrement(ctx context.Context, params AddItemParams) (*LineView, error)
	UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (int64, error)
	Delete(ctx context.Context, lineID, ownerID string) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const lineViewColumns = `
	c.id,
	c.user_id,
	c.product_id,
	c.quantity,
	c.created_at,
	c.updated_at,

	p.id,
	p.name,
	p.description,
	p.price,
	p.unit,
	p.image_url,
	p.category,
	p.in_stock,
	p.created_at`

func scanLineView(row interface{ Scan(...any) error }) (*LineView, error) {
	v := &LineView{Product: &product.Product{}}
	err := row.Scan(
		&v.ID,
		&v.OwnerID,
		&v.ProductID,
		&v.Quantity,
		&v.CreatedAt,
		&v.UpdatedAt,

		&v.Product.ID,
		&v.Product.Name,
		&v.Product.Description,
		&v.Product.Price,
		&v.Product.Unit,
		&v.Product.ImageURL,
		&v.Product.Category,
		&v.Product.InStock,
		&v.Product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *repository) Probe(ctx context.Context) error {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM cart_items LIMIT 1`).Scan(&id)
	switch {
	case err == nil, errors.Is(err, sql.ErrNoRows):
		return nil
	case db.IsCode(err, db.PgUndefinedTable):
		return unavailable(err)
	default:
		return err
	}
}

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]*LineView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListByOwner"),
		zap.String("owner_id", ownerID),
	)
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, `
	SELECT`+lineViewColumns+`
	FROM cart_items c
	JOIN products p ON p.id = c.product_id
	WHERE c.user_id = $1
	ORDER BY c.created_at DESC
	`, ownerID)
	if err != nil {
		if db.IsCode(err, db.PgUndefinedTable) {
			log.Error("cart table missing", zap.Error(err))
			return nil, unavailable(err)
		}
		log.Error("query failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}
	defer rows.Close()

	result := make([]*LineView, 0)
	for rows.Next() {
		v, err := scanLineView(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	log.Debug("query success",
		zap.Int("rows", len(result)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (r *repository) UpsertIncrement(ctx context.Context, params AddItemParams) (*LineView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpsertIncrement"),
		zap.String("owner_id", params.OwnerID),
		zap.String("product_id", params.ProductID),
		zap.Int("quantity", params.Quantity),
	)

	row := r.db.QueryRowContext(ctx, `
	WITH c AS (
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = NOW()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at
	)
	SELECT`+lineViewColumns+`
	FROM c
	JOIN products p ON p.id = c.product_id
	`, params.OwnerID, params.ProductID, params.Quantity)

	v, err := scanLineView(row)
	if err != nil {
		if db.IsCode(err, db.PgForeignKeyViolated) {
			return nil, product.ErrProductNotFound
		}
		log.Error("failed to upsert cart item", zap.Error(err))
		return nil, err
	}

	log.Info("cart item upserted",
		zap.String("line_id", v.ID),
		zap.Int("new_quantity", v.Quantity),
	)
	return v, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, params UpdateQuantityParams) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`, params.Quantity, params.LineID, params.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) Delete(ctx context.Context, lineID, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE id = $1 AND user_id = $2
	`, lineID, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
