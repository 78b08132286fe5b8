package paramsmock

import (
	"context"

	domain "peerfund-backend/internal/domain/params"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repo is a function-backed mock of domain.Repository.
type Repo struct {
	CreateFn       func(ctx context.Context, p *domain.SystemParameters) error
	GetActiveFn    func(ctx context.Context) (*domain.SystemParameters, error)
	GetByVersionFn func(ctx context.Context, version string) (*domain.SystemParameters, error)
}

func (m *Repo) Create(ctx context.Context, p *domain.SystemParameters) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetActive(ctx context.Context) (*domain.SystemParameters, error) {
	if m.GetActiveFn != nil {
		return m.GetActiveFn(ctx)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) GetByVersion(ctx context.Context, version string) (*domain.SystemParameters, error) {
	if m.GetByVersionFn != nil {
		return m.GetByVersionFn(ctx, version)
	}
	return nil, gorm.ErrRecordNotFound
}

// Fixed returns a repo that always serves the given version, both as the
// active version and by name.
func Fixed(p *domain.SystemParameters) *Repo {
	return &Repo{
		GetActiveFn: func(ctx context.Context) (*domain.SystemParameters, error) {
			return p, nil
		},
		GetByVersionFn: func(ctx context.Context, version string) (*domain.SystemParameters, error) {
			if version == p.Version {
				return p, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
}

// StandardTable is the four-tier table used across tests: it matches the
// seeded default parameter version.
func StandardTable(version string) *domain.SystemParameters {
	return &domain.SystemParameters{
		Version:                version,
		GracePeriodSecs:        86400,
		InstallmentCadenceSecs: 30 * 24 * 3600,
		DefaultOverdueStreak:   3,
		Active:                 true,
		Tiers: []domain.PricingTier{
			{Position: 1, Name: "starter", MinScore: 0, MaxScore: 39, RateBps: 2200, MaxPrincipal: decimal.NewFromInt(500_000), MinCoveragePct: 100},
			{Position: 2, Name: "builder", MinScore: 40, MaxScore: 69, RateBps: 1800, MaxPrincipal: decimal.NewFromInt(2_000_000), MinCoveragePct: 50},
			{Position: 3, Name: "trusted", MinScore: 70, MaxScore: 89, RateBps: 1400, MaxPrincipal: decimal.NewFromInt(5_000_000), MinCoveragePct: 25},
			{Position: 4, Name: "prime", MinScore: 90, MaxScore: 100, RateBps: 900, MaxPrincipal: decimal.NewFromInt(10_000_000), MinCoveragePct: 0},
		},
	}
}
