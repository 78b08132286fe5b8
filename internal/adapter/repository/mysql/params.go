package mysql

import (
	"context"

	paramsDomain "peerfund-backend/internal/domain/params"

	"gorm.io/gorm"
)

type ParamsRepository struct{ db *gorm.DB }

func NewParamsRepository(db *gorm.DB) *ParamsRepository { return &ParamsRepository{db: db} }

// Create persists the version and its tiers in one insert; gorm cascades
// the association through the ParamsID foreign key.
func (r *ParamsRepository) Create(ctx context.Context, p *paramsDomain.SystemParameters) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ParamsRepository) GetActive(ctx context.Context) (*paramsDomain.SystemParameters, error) {
	var out paramsDomain.SystemParameters
	res := r.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("active = ?", true).
		First(&out)
	return &out, res.Error
}

func (r *ParamsRepository) GetByVersion(ctx context.Context, version string) (*paramsDomain.SystemParameters, error) {
	var out paramsDomain.SystemParameters
	res := r.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("version = ?", version).
		First(&out)
	return &out, res.Error
}
