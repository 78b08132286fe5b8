package mysql

import (
	"context"

	loanDomain "peerfund-backend/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

// GetByLoanIDForUpdate takes a row lock that lives until the enclosing
// transaction commits. SQLite has no row locks (its writers serialize on the
// whole database), so the clause is applied on MySQL only.
func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out loanDomain.Loan
	res := q.Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListByBorrowerID(ctx context.Context, borrowerID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}
