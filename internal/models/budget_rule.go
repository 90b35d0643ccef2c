package models

import "github.com/shopspring/decimal"

// BudgetRule grants a monthly allowance from one member (the giver) to
// another (the receiver) for a set of expense types. Advisory only: it
// never participates in settlement math.
type BudgetRule struct {
	Base
	HouseholdID uint            `gorm:"not null;index" json:"household_id"`
	Name        string          `gorm:"not null" json:"name"`
	GiverID     uint            `gorm:"not null" json:"giver_id"`
	ReceiverID  uint            `gorm:"not null" json:"receiver_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`

	ExpenseTypes []ExpenseType `gorm:"many2many:budget_rule_expense_types" json:"expense_types,omitempty"`
}
