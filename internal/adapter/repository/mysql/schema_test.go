package mysql

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLite-friendly schemas only for tests: no ENUM columns, decimals as TEXT.
// The domain models keep their MySQL column types; these shadows share table
// and column names so the repositories work against either.

type userSQLite struct {
	ID          uint64    `gorm:"primaryKey;column:id"`
	UserID      string    `gorm:"size:32;column:user_id"`
	DisplayName string    `gorm:"column:display_name"`
	Wallet      string    `gorm:"column:wallet"`
	Role        string    `gorm:"type:text;column:role"`
	Score       int       `gorm:"column:score"`
	Status      string    `gorm:"type:text;column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (userSQLite) TableName() string { return "users" }

type paramsSQLite struct {
	ID                     uint64    `gorm:"primaryKey;column:id"`
	Version                string    `gorm:"size:32;column:version"`
	GracePeriodSecs        int64     `gorm:"column:grace_period_secs"`
	InstallmentCadenceSecs int64     `gorm:"column:installment_cadence_secs"`
	DefaultOverdueStreak   int       `gorm:"column:default_overdue_streak"`
	Active                 bool      `gorm:"column:active"`
	CreatedAt              time.Time `gorm:"column:created_at"`
}

func (paramsSQLite) TableName() string { return "system_parameters" }

type tierSQLite struct {
	ID             uint64 `gorm:"primaryKey;column:id"`
	ParamsID       uint64 `gorm:"column:params_id"`
	Position       int    `gorm:"column:position"`
	Name           string `gorm:"column:name"`
	MinScore       int    `gorm:"column:min_score"`
	MaxScore       int    `gorm:"column:max_score"`
	RateBps        int    `gorm:"column:rate_bps"`
	MaxPrincipal   string `gorm:"type:text;column:max_principal"`
	MinCoveragePct int    `gorm:"column:min_coverage_pct"`
}

func (tierSQLite) TableName() string { return "pricing_tiers" }

type loanSQLite struct {
	ID               uint64         `gorm:"primaryKey;column:id"`
	LoanID           string         `gorm:"size:32;column:loan_id"`
	BorrowerID       string         `gorm:"size:32;column:borrower_id"`
	Principal        string         `gorm:"type:text;column:principal"`
	TierName         string         `gorm:"column:tier_name"`
	RateBps          int            `gorm:"column:rate_bps"`
	MinCoveragePct   int            `gorm:"column:min_coverage_pct"`
	ParamsVersion    string         `gorm:"column:params_version"`
	InstallmentCount int            `gorm:"column:installment_count"`
	State            string         `gorm:"type:text;column:state"`
	StateUpdatedAt   time.Time      `gorm:"column:state_updated_at"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"column:deleted_at"`
	DeletedBy        string         `gorm:"column:deleted_by"`
}

func (loanSQLite) TableName() string { return "loans" }

type installmentSQLite struct {
	ID            uint64     `gorm:"primaryKey;column:id"`
	InstallmentID string     `gorm:"size:32;column:installment_id"`
	LoanID        uint64     `gorm:"column:loan_id"`
	Sequence      int        `gorm:"column:sequence"`
	DueAmount     string     `gorm:"type:text;column:due_amount"`
	Status        string     `gorm:"type:text;column:status"`
	DueAt         time.Time  `gorm:"column:due_at"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (installmentSQLite) TableName() string { return "installments" }

type endorsementSQLite struct {
	ID            uint64    `gorm:"primaryKey;column:id"`
	EndorsementID string    `gorm:"size:32;column:endorsement_id"`
	LoanID        uint64    `gorm:"column:loan_id"`
	SupporterID   string    `gorm:"size:32;column:supporter_id"`
	StakedAmount  string    `gorm:"type:text;column:staked_amount"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (endorsementSQLite) TableName() string { return "endorsements" }

type eventSQLite struct {
	ID          uint64    `gorm:"primaryKey;column:id"`
	EventID     string    `gorm:"size:32;column:event_id"`
	ReferenceID string    `gorm:"size:32;column:reference_id"`
	EventType   string    `gorm:"column:event_type"`
	Detail      string    `gorm:"type:text;column:detail"`
	Hash        string    `gorm:"column:hash"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (eventSQLite) TableName() string { return "events" }

type decisionSQLite struct {
	ID            uint64    `gorm:"primaryKey;column:id"`
	DecisionID    string    `gorm:"size:32;column:decision_id"`
	DecisionType  string    `gorm:"column:decision_type"`
	Inputs        string    `gorm:"type:text;column:inputs"`
	Outputs       string    `gorm:"type:text;column:outputs"`
	ParamsVersion string    `gorm:"column:params_version"`
	Hash          string    `gorm:"column:hash"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (decisionSQLite) TableName() string { return "decision_log" }

type fraudFlagSQLite struct {
	ID        uint64    `gorm:"primaryKey;column:id"`
	FlagID    string    `gorm:"size:32;column:flag_id"`
	UserID    string    `gorm:"size:32;column:user_id"`
	FlagType  string    `gorm:"column:flag_type"`
	Severity  string    `gorm:"type:text;column:severity"`
	Details   string    `gorm:"type:text;column:details"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (fraudFlagSQLite) TableName() string { return "fraud_flags" }

// openTestDB creates an in-memory sqlite DB and migrates every sqlite-safe
// shadow model, never the domain models.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&userSQLite{}, &paramsSQLite{}, &tierSQLite{},
		&loanSQLite{}, &installmentSQLite{}, &endorsementSQLite{},
		&eventSQLite{}, &decisionSQLite{}, &fraudFlagSQLite{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
