package audit

import "time"

// Event types emitted by the usecases. Detail payloads are free-form JSON;
// the hash covers {eventType, referenceId, detail, timestamp}.
const (
	EventUserRegistered     = "USER_REGISTERED"
	EventUserFlagged        = "USER_FLAGGED"
	EventRoleChanged        = "ROLE_CHANGED"
	EventLoanCreated        = "LOAN_CREATED"
	EventLoanActivated      = "LOAN_ACTIVATED"
	EventLoanRepaid         = "LOAN_REPAID"
	EventLoanDefaulted      = "LOAN_DEFAULTED"
	EventLoanCancelled      = "LOAN_CANCELLED"
	EventEndorsementAdded   = "ENDORSEMENT_ADDED"
	EventInstallmentPaid    = "INSTALLMENT_PAID"
	EventInstallmentOverdue = "INSTALLMENT_OVERDUE"
)

// Event is append-only and immutable after creation. The hash is stored
// alongside the row for tamper evidence; it is not the identifier.
type Event struct {
	ID          uint64    `gorm:"primaryKey;column:id" json:"-"`
	EventID     string    `gorm:"size:32;uniqueIndex:ux_events_public_id" json:"event_id"`
	ReferenceID string    `gorm:"size:32;index:idx_events_reference" json:"reference_id"`
	EventType   string    `gorm:"size:40" json:"event_type"`
	Detail      string    `gorm:"type:text" json:"detail"` // JSON
	Hash        string    `gorm:"size:64" json:"hash"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Event) TableName() string { return "events" }

// Decision types recorded by automated judgments.
const (
	DecisionLoanPricing = "loan_pricing"
	DecisionFraudCheck  = "fraud_check"
)

// DecisionLogEntry is append-only. Hash must be reproducible from the
// stored inputs/outputs/version tuple; a mismatch on re-hash is an
// integrity violation, never ignored.
type DecisionLogEntry struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	DecisionID    string    `gorm:"size:32;uniqueIndex:ux_decisions_public_id" json:"decision_id"`
	DecisionType  string    `gorm:"size:40;index:idx_decisions_type" json:"decision_type"`
	Inputs        string    `gorm:"type:text" json:"inputs"`   // JSON
	Outputs       string    `gorm:"type:text" json:"outputs"` // JSON
	ParamsVersion string    `gorm:"size:32" json:"params_version"`
	Hash          string    `gorm:"size:64" json:"hash"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DecisionLogEntry) TableName() string { return "decision_log" }

type Severity string

const (
	SeverityLow  Severity = "LOW"
	SeverityHigh Severity = "HIGH"
)

const FlagMultiAccount = "MULTI_ACCOUNT"

// FraudFlag is created only from detector output and never auto-deleted;
// clearing one is an operator action outside this service.
type FraudFlag struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	FlagID    string    `gorm:"size:32;uniqueIndex:ux_fraud_flags_public_id" json:"flag_id"`
	UserID    string    `gorm:"size:32;index:idx_fraud_flags_user" json:"user_id"`
	FlagType  string    `gorm:"size:40" json:"flag_type"`
	Severity  Severity  `gorm:"type:enum('LOW','HIGH')" json:"severity"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FraudFlag) TableName() string { return "fraud_flags" }
