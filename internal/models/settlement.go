package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementInstruction is one directional payment in a reduced
// reconciliation result.
type SettlementInstruction struct {
	DebtorID   uint            `json:"debtor_id"`
	CreditorID uint            `json:"creditor_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// Settlement is an immutable snapshot of a month's reconciliation. Its
// existence makes that month's transactions read-only. The composite
// unique index on (household_id, month_key) is the persistence-level
// guard against concurrent settles.
type Settlement struct {
	Base
	HouseholdID uint   `gorm:"not null;uniqueIndex:idx_settlement_household_month" json:"household_id"`
	MonthKey    string `gorm:"size:7;not null;uniqueIndex:idx_settlement_household_month" json:"month_key"`

	// Amount, DebtorID and CreditorID describe the primary (largest)
	// instruction; Instructions holds the full reduced set for
	// households with more than two members.
	Amount       decimal.Decimal         `gorm:"type:numeric(12,2);not null" json:"amount"`
	DebtorID     uint                    `json:"debtor_id"`
	CreditorID   uint                    `json:"creditor_id"`
	Instructions []SettlementInstruction `gorm:"serializer:json" json:"instructions"`
	Message      string                  `gorm:"not null" json:"message"`
	SettledAt    time.Time               `gorm:"not null" json:"settled_at"`
}
