package params

import "context"

type Repository interface {
	// Create persists a new version together with its tiers.
	Create(ctx context.Context, p *SystemParameters) error
	// GetActive returns the single active version, tiers preloaded in table order.
	GetActive(ctx context.Context) (*SystemParameters, error)
	// GetByVersion returns a historical version for audit re-evaluation.
	GetByVersion(ctx context.Context, version string) (*SystemParameters, error)
}
