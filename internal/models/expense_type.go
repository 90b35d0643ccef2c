package models

// ExpenseType is a household-scoped label on transactions, used to match
// split-rule overrides and budget rules.
type ExpenseType struct {
	Base
	HouseholdID uint   `gorm:"not null;uniqueIndex:idx_household_expense_type_name" json:"household_id"`
	Name        string `gorm:"not null;uniqueIndex:idx_household_expense_type_name" json:"name"`
	Icon        string `json:"icon"`
}
