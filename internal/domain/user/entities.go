package user

import (
	"strings"
	"time"
)

type Role string

const (
	RoleBorrower  Role = "BORROWER"
	RoleSupporter Role = "SUPPORTER"
	RoleOperator  Role = "OPERATOR"
	RoleProvider  Role = "PROVIDER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBorrower, RoleSupporter, RoleOperator, RoleProvider:
		return true
	}
	return false
}

type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusBlocked     Status = "BLOCKED"
)

// User is never hard-deleted; fraud review and role changes mutate it in
// place and leave their trace in the event log.
type User struct {
	ID          uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID      string    `gorm:"size:32;uniqueIndex:ux_users_user_id" json:"user_id"`
	DisplayName string    `gorm:"size:120" json:"display_name"`
	Wallet      string    `gorm:"size:64;uniqueIndex:ux_users_wallet" json:"wallet"` // stored lowercase
	Role        Role      `gorm:"type:enum('BORROWER','SUPPORTER','OPERATOR','PROVIDER');default:'BORROWER'" json:"role"`
	Score       int       `gorm:"type:smallint" json:"score"` // 0..100
	Status      Status    `gorm:"type:enum('ACTIVE','UNDER_REVIEW','BLOCKED');default:'ACTIVE'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// NormalizeWallet is the single place wallet case-folding happens. Wallet
// uniqueness is defined over this form.
func NormalizeWallet(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
