package models

// MemberRole represents a member's role within a household
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// Household is the multi-tenancy boundary: every financial record is
// scoped to exactly one household and is removed with it.
type Household struct {
	Base
	Name string `gorm:"not null" json:"name"`
	// SettlementCurrency is the single currency all transactions are
	// normalized into for reconciliation.
	SettlementCurrency Currency `gorm:"size:3;not null;default:USD" json:"settlement_currency"`

	Members      []HouseholdMember `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Invitations  []Invitation      `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"invitations,omitempty"`
	ExpenseTypes []ExpenseType     `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"expense_types,omitempty"`
	Transactions []Transaction     `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"transactions,omitempty"`
	SplitRules   []SplitRule       `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"split_rules,omitempty"`
	BudgetRules  []BudgetRule      `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"budget_rules,omitempty"`
	Settlements  []Settlement      `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE" json:"settlements,omitempty"`
}

// HouseholdMember links a user to a household.
type HouseholdMember struct {
	Base
	HouseholdID uint       `gorm:"not null;uniqueIndex:idx_household_user" json:"household_id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_household_user" json:"user_id"`
	Role        MemberRole `gorm:"not null;default:member" json:"role"`
	// DisplayName overrides the user's global display name within this household.
	DisplayName string `json:"display_name"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
