package loan

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type State string

const (
	StateProposed  State = "PROPOSED"
	StateFunding   State = "FUNDING"
	StateActive    State = "ACTIVE"
	StateRepaid    State = "REPAID"
	StateDefaulted State = "DEFAULTED"
	StateCancelled State = "CANCELLED"
)

// Loan carries a snapshot of the pricing tier chosen at creation (rate,
// coverage requirement, parameter version). The snapshot is never
// recomputed retroactively; re-pricing would break audit reproducibility.
type Loan struct {
	ID               uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"loan_id"`
	BorrowerID       string          `gorm:"size:32;index:idx_loans_borrower" json:"borrower_id"`
	Principal        decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal"`
	TierName         string          `gorm:"size:40" json:"tier_name"`
	RateBps          int             `json:"rate_bps"`
	MinCoveragePct   int             `json:"min_coverage_pct"`
	ParamsVersion    string          `gorm:"size:32" json:"params_version"`
	InstallmentCount int             `json:"installment_count"`
	State            State           `gorm:"type:enum('PROPOSED','FUNDING','ACTIVE','REPAID','DEFAULTED','CANCELLED');default:'PROPOSED'" json:"state"`
	StateUpdatedAt   time.Time       `gorm:"autoCreateTime" json:"state_updated_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
	DeletedBy        string          `gorm:"size:32" json:"-"`
}

func (Loan) TableName() string { return "loans" }

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
)

// Installment rows are generated once, at activation. Status moves
// PENDING -> PAID on payment, PENDING -> OVERDUE past the grace period,
// and OVERDUE -> PAID on a late payment (the lateness stays in the event
// history, not here).
type Installment struct {
	ID            uint64            `gorm:"primaryKey;column:id" json:"-"`
	InstallmentID string            `gorm:"size:32;uniqueIndex:ux_installments_public_id" json:"installment_id"`
	LoanID        uint64            `gorm:"index:idx_installments_loan;not null" json:"-"`
	Sequence      int               `json:"sequence"`
	DueAmount     decimal.Decimal   `gorm:"type:decimal(18,2)" json:"due_amount"`
	Status        InstallmentStatus `gorm:"type:enum('PENDING','PAID','OVERDUE');default:'PENDING'" json:"status"`
	DueAt         time.Time         `json:"due_at"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Installment) TableName() string { return "installments" }

// Endorsement is a supporter's stake behind a loan. There is no update or
// delete path, so a loan's total staked amount only ever grows.
type Endorsement struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	EndorsementID string          `gorm:"size:32;uniqueIndex:ux_endorsements_public_id" json:"endorsement_id"`
	LoanID        uint64          `gorm:"index:idx_endorsements_loan;not null" json:"-"`
	SupporterID   string          `gorm:"size:32;index:idx_endorsements_supporter" json:"supporter_id"`
	StakedAmount  decimal.Decimal `gorm:"type:decimal(18,2)" json:"staked_amount"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Endorsement) TableName() string { return "endorsements" }
