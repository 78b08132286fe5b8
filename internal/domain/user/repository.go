package user

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUserID(ctx context.Context, userID string) (*User, error)
	// GetByWallet expects an already-normalized (lowercase) wallet.
	GetByWallet(ctx context.Context, wallet string) (*User, error)
	Save(ctx context.Context, u *User) error
	// ListCreatedSince returns the account snapshot the fraud detector runs over.
	ListCreatedSince(ctx context.Context, since time.Time) ([]User, error)
}
