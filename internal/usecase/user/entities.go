package user

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Wallet      string `json:"wallet"`
	Role        string `json:"role"`
	// Score is operator-calibrated; defaults to 50 when absent.
	Score *int `json:"score,omitempty"`
}

type UserDTO struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Wallet      string    `json:"wallet"`
	Role        string    `json:"role"`
	Score       int       `json:"score"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type FraudFlagDTO struct {
	FlagID    string    `json:"flag_id"`
	FlagType  string    `json:"flag_type"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

type LoanSummaryDTO struct {
	LoanID    string          `json:"loan_id"`
	Principal decimal.Decimal `json:"principal"`
	State     string          `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

type UserView struct {
	User       UserDTO          `json:"user"`
	FraudFlags []FraudFlagDTO   `json:"fraud_flags"`
	Loans      []LoanSummaryDTO `json:"loans"`
}
