package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/internal/domain/params"

	"gorm.io/gorm"
)

// Engine resolves a borrower score to a pricing tier against a stored,
// versioned parameter table. Selection is pure: the same score and version
// always yield the same tier, which is what makes logged pricing decisions
// re-evaluable.
type Engine struct{ repo params.Repository }

func NewEngine(r params.Repository) *Engine { return &Engine{repo: r} }

// SelectTier loads the given version (the active one when version is empty),
// validates the table, and returns the matching tier plus the parameters it
// came from.
func (e *Engine) SelectTier(ctx context.Context, score int, version string) (*params.PricingTier, *params.SystemParameters, error) {
	var (
		p   *params.SystemParameters
		err error
	)
	if version == "" {
		p, err = e.repo.GetActive(ctx)
	} else {
		p, err = e.repo.GetByVersion(ctx, version)
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, errs.Integrityf("parameter version %q not found", version)
	case err != nil:
		return nil, nil, errs.Storage("load parameters", err)
	}

	if err := Validate(p.Tiers); err != nil {
		return nil, nil, err
	}
	tier, err := SelectFromTable(p, score)
	if err != nil {
		return nil, nil, err
	}
	return tier, p, nil
}

// Validate enforces the tier-table invariant: tiers must be non-overlapping,
// contiguous, and together cover the full [0,100] score range. A broken
// table is an integrity violation, not a user error.
func Validate(tiers []params.PricingTier) error {
	if len(tiers) == 0 {
		return errs.Integrityf("pricing table is empty")
	}
	sorted := make([]params.PricingTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	for i := range sorted {
		t := &sorted[i]
		if t.MinScore > t.MaxScore {
			return errs.Integrityf("tier %q has inverted range [%d,%d]", t.Name, t.MinScore, t.MaxScore)
		}
	}
	if sorted[0].MinScore != 0 {
		return errs.Integrityf("pricing table does not start at 0 (starts at %d)", sorted[0].MinScore)
	}
	if sorted[len(sorted)-1].MaxScore != 100 {
		return errs.Integrityf("pricing table does not end at 100 (ends at %d)", sorted[len(sorted)-1].MaxScore)
	}
	for i := 1; i < len(sorted); i++ {
		prev, cur := &sorted[i-1], &sorted[i]
		if cur.MinScore <= prev.MaxScore {
			return errs.Integrityf("tiers %q and %q overlap", prev.Name, cur.Name)
		}
		if cur.MinScore != prev.MaxScore+1 {
			return errs.Integrityf("gap between tiers %q and %q (%d..%d uncovered)",
				prev.Name, cur.Name, prev.MaxScore+1, cur.MinScore-1)
		}
	}
	return nil
}

// SelectFromTable returns the tier whose range contains score. Tiers are
// scanned in table (Position) order, so if validation was skipped and
// ranges overlap, the first tier in table order wins.
func SelectFromTable(p *params.SystemParameters, score int) (*params.PricingTier, error) {
	tiers := make([]params.PricingTier, len(p.Tiers))
	copy(tiers, p.Tiers)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Position < tiers[j].Position })

	for i := range tiers {
		if tiers[i].Contains(score) {
			t := tiers[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: score %d under version %s", errs.ErrNoMatchingTier, score, p.Version)
}
