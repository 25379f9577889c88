package category

import (
	"context"
	"strings"

	"grocer-be/internal/logger"

	"go.uber.org/zap"
)

// Service lists the categories shoppers can browse by.
type Service interface {
	List(ctx context.Context, filter string) ([]*Category, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, filter string) ([]*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "List"),
	)

	categories, err := s.repo.List(ctx, strings.TrimSpace(filter))
	if err != nil {
		log.Error("failed to list categories", zap.Error(err))
		return nil, err
	}

	log.Debug("categories listed", zap.Int("count", len(categories)))
	return categories, nil
}
