package params

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemParameters is immutable once published. Historical versions stay in
// the table so a decision logged against vN can always be re-evaluated
// against the vN pricing table.
type SystemParameters struct {
	ID                     uint64        `gorm:"primaryKey;column:id" json:"-"`
	Version                string        `gorm:"size:32;uniqueIndex:ux_params_version" json:"version"`
	GracePeriodSecs        int64         `json:"grace_period_secs"`
	InstallmentCadenceSecs int64         `json:"installment_cadence_secs"`
	DefaultOverdueStreak   int           `json:"default_overdue_streak"`
	Active                 bool          `gorm:"index" json:"active"`
	Tiers                  []PricingTier `gorm:"foreignKey:ParamsID" json:"tiers"`
	CreatedAt              time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (SystemParameters) TableName() string { return "system_parameters" }

func (p *SystemParameters) GracePeriod() time.Duration {
	return time.Duration(p.GracePeriodSecs) * time.Second
}

func (p *SystemParameters) InstallmentCadence() time.Duration {
	return time.Duration(p.InstallmentCadenceSecs) * time.Second
}

// PricingTier is one score-range bucket. Position fixes table order, which
// is the documented tie-break if ranges ever overlap.
type PricingTier struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	ParamsID       uint64          `gorm:"index" json:"-"`
	Position       int             `json:"position"`
	Name           string          `gorm:"size:40" json:"name"`
	MinScore       int             `json:"min_score"` // inclusive
	MaxScore       int             `json:"max_score"` // inclusive
	RateBps        int             `json:"rate_bps"`
	MaxPrincipal   decimal.Decimal `gorm:"type:decimal(18,2)" json:"max_principal"`
	MinCoveragePct int             `json:"min_coverage_pct"`
}

func (PricingTier) TableName() string { return "pricing_tiers" }

// Contains reports whether score falls in the tier's inclusive range.
func (t *PricingTier) Contains(score int) bool {
	return score >= t.MinScore && score <= t.MaxScore
}
