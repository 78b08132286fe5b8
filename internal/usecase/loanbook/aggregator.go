package loanbook

import (
	"time"

	"peerfund-backend/internal/domain/errs"
	"peerfund-backend/internal/domain/loan"
	"peerfund-backend/pkg/id"

	"github.com/shopspring/decimal"
)

// Derived loan state. Nothing here is cached: coverage, owed and overdue
// amounts are recomputed from the endorsement/installment rows on every
// read so they can never drift from the latest state.

var hundred = decimal.NewFromInt(100)

// TotalStaked sums a loan's endorsement stakes.
func TotalStaked(endorsements []loan.Endorsement) decimal.Decimal {
	sum := decimal.Zero
	for i := range endorsements {
		sum = sum.Add(endorsements[i].StakedAmount)
	}
	return sum
}

// CoveragePct returns staked/principal as a percentage. A non-positive
// principal is a data-integrity error, never a silent division.
func CoveragePct(l *loan.Loan, endorsements []loan.Endorsement) (decimal.Decimal, error) {
	if !l.Principal.IsPositive() {
		return decimal.Zero, errs.Integrityf("loan %s has non-positive principal %s", l.LoanID, l.Principal)
	}
	return TotalStaked(endorsements).Div(l.Principal).Mul(hundred), nil
}

// MeetsCoverage reports whether live coverage reaches the loan's snapshot
// requirement. Compared exactly (staked*100 vs principal*pct) to avoid
// division rounding at the threshold.
func MeetsCoverage(l *loan.Loan, endorsements []loan.Endorsement) bool {
	staked := TotalStaked(endorsements).Mul(hundred)
	required := l.Principal.Mul(decimal.NewFromInt(int64(l.MinCoveragePct)))
	return staked.GreaterThanOrEqual(required)
}

// AmountOwed sums due amounts of installments not yet paid.
func AmountOwed(installments []loan.Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range installments {
		if installments[i].Status != loan.InstallmentPaid {
			sum = sum.Add(installments[i].DueAmount)
		}
	}
	return sum
}

// OverdueAmount sums due amounts of installments currently overdue.
func OverdueAmount(installments []loan.Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range installments {
		if installments[i].Status == loan.InstallmentOverdue {
			sum = sum.Add(installments[i].DueAmount)
		}
	}
	return sum
}

// SweepOverdue returns the indexes of installments whose status must flip
// PENDING -> OVERDUE: unpaid and now strictly past dueAt+grace. At exactly
// dueAt+grace the installment is still pending.
func SweepOverdue(now time.Time, grace time.Duration, installments []loan.Installment) []int {
	var flips []int
	for i := range installments {
		if installments[i].Status != loan.InstallmentPending {
			continue
		}
		if now.After(installments[i].DueAt.Add(grace)) {
			flips = append(flips, i)
		}
	}
	return flips
}

// ConsecutiveOverdue returns the longest run of consecutive OVERDUE
// installments in sequence order. Feeds the default-threshold policy from
// SystemParameters.
func ConsecutiveOverdue(installments []loan.Installment) int {
	best, run := 0, 0
	for i := range installments {
		if installments[i].Status == loan.InstallmentOverdue {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// AllPaid reports whether every installment is paid. Safe to re-evaluate
// from any caller; the ACTIVE -> REPAID transition relies on that.
func AllPaid(installments []loan.Installment) bool {
	if len(installments) == 0 {
		return false
	}
	for i := range installments {
		if installments[i].Status != loan.InstallmentPaid {
			return false
		}
	}
	return true
}

// CanActivate is the FUNDING -> ACTIVE guard.
func CanActivate(l *loan.Loan, endorsements []loan.Endorsement) bool {
	return l.State == loan.StateFunding && MeetsCoverage(l, endorsements)
}

// BuildSchedule splits the principal into the loan's installment count,
// two decimal places, remainder on the last installment. Due dates are
// spaced by the cadence from the activation instant.
func BuildSchedule(l *loan.Loan, activatedAt time.Time, cadence time.Duration) []loan.Installment {
	n := l.InstallmentCount
	if n <= 0 {
		return nil
	}
	per := l.Principal.DivRound(decimal.NewFromInt(int64(n)), 2)
	items := make([]loan.Installment, 0, n)
	for i := 1; i <= n; i++ {
		due := per
		if i == n {
			due = l.Principal.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))
		}
		items = append(items, loan.Installment{
			InstallmentID: id.NewID32(),
			LoanID:        l.ID,
			Sequence:      i,
			DueAmount:     due,
			Status:        loan.InstallmentPending,
			DueAt:         activatedAt.Add(time.Duration(i) * cadence),
		})
	}
	return items
}
