package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	BorrowerID       string          `json:"borrower_id"`
	Principal        decimal.Decimal `json:"principal"`
	InstallmentCount int             `json:"installment_count"`
}

type LoanDTO struct {
	LoanID           string          `json:"loan_id"`
	BorrowerID       string          `json:"borrower_id"`
	Principal        decimal.Decimal `json:"principal"`
	TierName         string          `json:"tier_name"`
	RateBps          int             `json:"rate_bps"`
	MinCoveragePct   int             `json:"min_coverage_pct"`
	ParamsVersion    string          `json:"params_version"`
	InstallmentCount int             `json:"installment_count"`
	State            string          `json:"state"`
	CreatedAt        time.Time       `json:"created_at"`
}

type EndorsementInput struct {
	LoanID      string          `json:"loan_id"`
	SupporterID string          `json:"supporter_id"`
	Amount      decimal.Decimal `json:"amount"`
}

type EndorsementDTO struct {
	EndorsementID string          `json:"endorsement_id"`
	LoanID        string          `json:"loan_id"`
	SupporterID   string          `json:"supporter_id"`
	StakedAmount  decimal.Decimal `json:"staked_amount"`
	LoanState     string          `json:"loan_state"`
	CoveragePct   decimal.Decimal `json:"coverage_pct"`
}

type PaymentInput struct {
	LoanID        string `json:"loan_id"`
	InstallmentID string `json:"installment_id"`
}

type PaymentDTO struct {
	InstallmentID string    `json:"installment_id"`
	Sequence      int       `json:"sequence"`
	Status        string    `json:"status"`
	Late          bool      `json:"late"`
	LoanState     string    `json:"loan_state"`
	PaidAt        time.Time `json:"paid_at"`
}

type InstallmentDTO struct {
	InstallmentID string          `json:"installment_id"`
	Sequence      int             `json:"sequence"`
	DueAmount     decimal.Decimal `json:"due_amount"`
	Status        string          `json:"status"`
	DueAt         time.Time       `json:"due_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// DecisionReplayDTO reports a decision re-verification. HashOK means the
// stored hash reproduced from the entry's own fields; Replayed means the
// tier selection was re-executed against the pinned parameter version and
// matched the recorded outputs (pricing decisions only).
type DecisionReplayDTO struct {
	DecisionID    string `json:"decision_id"`
	DecisionType  string `json:"decision_type"`
	ParamsVersion string `json:"params_version"`
	HashOK        bool   `json:"hash_ok"`
	Replayed      bool   `json:"replayed"`
}

// LoanView carries the loan plus its derived values. Coverage, owed and
// overdue are computed from rows at read time, never stored.
type LoanView struct {
	Loan          LoanDTO          `json:"loan"`
	CoveragePct   decimal.Decimal  `json:"coverage_pct"`
	AmountOwed    decimal.Decimal  `json:"amount_owed"`
	OverdueAmount decimal.Decimal  `json:"overdue_amount"`
	Installments  []InstallmentDTO `json:"installments"`
	Endorsements  []EndorsementDTO `json:"endorsements"`
}
