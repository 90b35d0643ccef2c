package models

// SplitRule configures how shared transactions are divided between two
// designated household members. A rule with a nil ExpenseTypeID is the
// household default; a rule with one overrides the default for that type.
// At most one of each may exist per scope.
type SplitRule struct {
	Base
	HouseholdID uint `gorm:"not null;uniqueIndex:idx_household_expense_type_rule" json:"household_id"`
	// ExpenseTypeID is nil for the household default rule.
	ExpenseTypeID *uint `gorm:"uniqueIndex:idx_household_expense_type_rule" json:"expense_type_id,omitempty"`

	MemberAID uint `gorm:"not null" json:"member_a_id"`
	MemberBID uint `gorm:"not null" json:"member_b_id"`
	// ShareA and ShareB are integer percentages and must sum to 100.
	ShareA int `gorm:"not null" json:"share_a"`
	ShareB int `gorm:"not null" json:"share_b"`

	ExpenseType *ExpenseType `gorm:"foreignKey:ExpenseTypeID" json:"expense_type,omitempty"`
}

// IsDefault reports whether the rule is the household-wide default.
func (r *SplitRule) IsDefault() bool {
	return r.ExpenseTypeID == nil
}

// SharesValid reports whether the percentages are non-negative and sum to 100.
func (r *SplitRule) SharesValid() bool {
	return r.ShareA >= 0 && r.ShareB >= 0 && r.ShareA+r.ShareB == 100
}
