package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"grocer-be/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, description, price, unit, image_url, category, in_stock, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Unit,
		&p.ImageURL,
		&p.Category,
		&p.InStock,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListProducts"),
	)
	start := time.Now()

	// ---------- pagination ----------
	limit := defaultLimit
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	page := 1
	if opts.Page > 0 {
		page = opts.Page
	}
	offset := (page - 1) * limit

	// ---------- where ----------
	where := []string{"1 = 1"}
	args := []any{}

	if opts.Category != "" {
		args = append(args, opts.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	query := `SELECT ` + productColumns + `
	FROM products
	WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY name ASC
	LIMIT $` + fmt.Sprint(len(args)+1) + `
	OFFSET $` + fmt.Sprint(len(args)+2)

	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := make([]*Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("query success",
		zap.Int("rows", len(result)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}
