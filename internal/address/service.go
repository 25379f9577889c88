package address

import (
	"context"
	"errors"

	"grocer-be/internal/identity"
	"grocer-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the signed-in user's address book.
type Service interface {
	List(ctx context.Context) ([]*Address, error)
	Get(ctx context.Context, addressID string) (*Address, error)

	Create(ctx context.Context, input AddressInput) (*Address, error)
	Update(ctx context.Context, addressID string, input AddressInput) (*Address, error)
	Delete(ctx context.Context, addressID string) error

	SetDefaultAddress(ctx context.Context, addressID string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func currentUser(ctx context.Context) (uuid.UUID, error) {
	raw, ok := identity.UserIDFrom(ctx)
	if !ok {
		return uuid.Nil, identity.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, identity.ErrUnauthenticated
	}
	return id, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidAddressID
	}
	return id, nil
}

func (s *service) List(
	ctx context.Context,
) ([]*Address, error) {

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "List"),
	)

	log.Info("listing addresses")

	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) Get(
	ctx context.Context,
	addressID string,
) (*Address, error) {

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(addressID)
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id, userID)
}

func (s *service) Create(
	ctx context.Context,
	input AddressInput,
) (*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Create"),
	)

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	addr := &Address{
		ID:       uuid.New(),
		UserID:   userID,
		IsActive: true,
	}
	input.apply(addr)

	if err := s.repo.Create(ctx, addr); err != nil {
		log.Error("failed to create address", zap.Error(err))
		return nil, err
	}

	log.Info("address created", zap.String("address_id", addr.ID.String()))
	return addr, nil
}

func (s *service) Update(
	ctx context.Context,
	addressID string,
	input AddressInput,
) (*Address, error) {

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Update"),
		zap.String("address_id", addressID),
	)

	id, err := parseID(addressID)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	addr := &Address{ID: id, UserID: userID, IsActive: true}
	input.apply(addr)

	if err := s.repo.Update(ctx, addr); err != nil {
		if !errors.Is(err, ErrAddressNotFound) {
			log.Error("failed to update address", zap.Error(err))
		}
		return nil, err
	}

	log.Info("address updated")
	return addr, nil
}

func (s *service) Delete(
	ctx context.Context,
	addressID string,
) error {

	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(addressID)
	if err != nil {
		return err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Delete"),
		zap.String("address_id", addressID),
	)

	n, err := s.repo.Deactivate(ctx, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAddressNotFound
	}

	log.Info("address deleted")
	return nil
}

func (s *service) SetDefaultAddress(
	ctx context.Context,
	addressID string,
) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(addressID)
	if err != nil {
		return err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "SetDefaultAddress"),
		zap.String("address_id", addressID),
	)

	log.Info("setting default address")

	if err := s.repo.SetDefault(ctx, userID, id); err != nil {
		log.Error("failed to set default address", zap.Error(err))
		return err
	}

	return nil
}
