package mysql

import (
	"context"
	"time"

	userDomain "peerfund-backend/internal/domain/user"

	"gorm.io/gorm"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *userDomain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	return &out, res.Error
}

func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).Where("wallet = ?", wallet).First(&out)
	return &out, res.Error
}

func (r *UserRepository) Save(ctx context.Context, u *userDomain.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *UserRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]userDomain.User, error) {
	var out []userDomain.User
	res := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
