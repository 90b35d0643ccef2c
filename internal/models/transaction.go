package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SplitCategory determines how a transaction's cost is divided among
// household members.
type SplitCategory string

const (
	// SplitShared divides the amount by the household's split rules
	// (per-expense-type override, then default, then 50/50).
	SplitShared SplitCategory = "shared"
	// SplitCovered means the payer covers the transaction for another
	// member entirely: SplitMemberID owes 100%.
	SplitCovered SplitCategory = "covered"
	// SplitPersonal attributes the transaction fully to SplitMemberID
	// with zero reconciliation effect.
	SplitPersonal SplitCategory = "personal"
)

// Transaction represents a single household expense.
type Transaction struct {
	Base
	HouseholdID uint      `gorm:"not null;index:idx_tx_household_month" json:"household_id"`
	Date        time.Time `gorm:"not null" json:"date"`
	Merchant    string    `gorm:"not null" json:"merchant"`

	// Amount is in the original Currency; NormalizedAmount is the same
	// value in the household's settlement currency, computed when the
	// transaction is created or edited and frozen once the month settles.
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency         Currency        `gorm:"size:3;not null" json:"currency"`
	NormalizedAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"normalized_amount"`

	PaidByID      uint          `gorm:"not null" json:"paid_by_id"`
	SplitCategory SplitCategory `gorm:"not null;default:shared" json:"split_category"`
	// SplitMemberID names the beneficiary for covered transactions and
	// the owner for personal ones; nil for shared.
	SplitMemberID *uint  `json:"split_member_id,omitempty"`
	ExpenseTypeID *uint  `json:"expense_type_id,omitempty"`
	Notes         string `json:"notes"`

	// MonthKey is derived from Date and indexed for month-bucket queries.
	MonthKey string `gorm:"size:7;not null;index:idx_tx_household_month" json:"month_key"`

	PaidBy      User         `gorm:"foreignKey:PaidByID" json:"paid_by,omitempty"`
	ExpenseType *ExpenseType `gorm:"foreignKey:ExpenseTypeID" json:"expense_type,omitempty"`
}

// BeforeSave derives MonthKey from Date so the two can never disagree.
func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	if !t.Date.IsZero() {
		t.MonthKey = MonthKeyOf(t.Date)
	}
	return nil
}

var monthKeyRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthKeyOf returns the YYYY-MM bucket for a date.
func MonthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}

// ValidMonthKey reports whether s is a YYYY-MM month key.
func ValidMonthKey(s string) bool {
	return monthKeyRegex.MatchString(s)
}

// MonthKeyTime parses a month key into the first instant of that month (UTC).
func MonthKeyTime(key string) (time.Time, error) {
	return time.Parse("2006-01", key)
}
