package product

import (
	"context"
	"strings"
)

type Service interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrProductNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]*Product, error) {
	opts.Search = strings.TrimSpace(opts.Search)
	return s.repo.List(ctx, opts)
}
