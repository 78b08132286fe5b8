package usermock

import (
	"context"
	"time"

	domain "peerfund-backend/internal/domain/user"
)

// Repo is a function-backed mock of domain.Repository.
type Repo struct {
	CreateFn           func(ctx context.Context, u *domain.User) error
	GetByUserIDFn      func(ctx context.Context, userID string) (*domain.User, error)
	GetByWalletFn      func(ctx context.Context, wallet string) (*domain.User, error)
	SaveFn             func(ctx context.Context, u *domain.User) error
	ListCreatedSinceFn func(ctx context.Context, since time.Time) ([]domain.User, error)
}

func (m *Repo) Create(ctx context.Context, u *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}

func (m *Repo) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(ctx, userID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	if m.GetByWalletFn != nil {
		return m.GetByWalletFn(ctx, wallet)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, u *domain.User) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, u)
	}
	return nil
}

func (m *Repo) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.User, error) {
	if m.ListCreatedSinceFn != nil {
		return m.ListCreatedSinceFn(ctx, since)
	}
	return nil, nil
}
