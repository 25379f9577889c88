package category

import (
	"context"
	"database/sql"
	"fmt"

	"grocer-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, filter string) ([]*Category, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filter string) ([]*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Category"),
		zap.String("method", "List"),
		zap.String("filter", filter),
	)

	query := `
		SELECT
			p.category,
			COUNT(*),
			COUNT(*) FILTER (WHERE p.in_stock)
		FROM products p
		WHERE p.category <> ''
	`
	args := []any{}

	if filter != "" {
		args = append(args, "%"+filter+"%")
		query += fmt.Sprintf(" AND p.category ILIKE $%d", len(args))
	}

	query += " GROUP BY p.category ORDER BY p.category ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Name, &c.ProductCount, &c.InStockCount); err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, err
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, err
	}

	return categories, nil
}
