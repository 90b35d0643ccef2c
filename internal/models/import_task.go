package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImportStatus is the lifecycle state of a statement import task.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusReady      ImportStatus = "ready"
	ImportStatusFailed     ImportStatus = "failed"
)

// ImportTask tracks one uploaded bank statement through the background
// extraction pipeline. IDs are UUIDs since tasks are created before any
// row exists to reference.
type ImportTask struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	HouseholdID uint         `gorm:"not null;index" json:"household_id"`
	UploaderID  uint         `gorm:"not null" json:"uploader_id"`
	Filename    string       `gorm:"not null" json:"filename"`
	Status      ImportStatus `gorm:"not null;default:pending" json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	Candidates []ImportCandidate `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"candidates,omitempty"`
}

// ImportCandidate is one extracted transaction guess awaiting user review.
type ImportCandidate struct {
	Base
	TaskID   string          `gorm:"size:36;not null;index" json:"task_id"`
	Date     time.Time       `gorm:"not null" json:"date"`
	Merchant string          `gorm:"not null" json:"merchant"`
	Amount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency Currency        `gorm:"size:3;not null" json:"currency"`
	// Confidence is the extractor's 0..1 score for this guess.
	Confidence float64 `json:"confidence"`

	ProposedSplit         SplitCategory `gorm:"default:shared" json:"proposed_split"`
	ProposedExpenseTypeID *uint         `json:"proposed_expense_type_id,omitempty"`

	// LikelyDuplicate is set by the fuzzy merchant+amount+date match
	// against existing household transactions. Best effort only.
	LikelyDuplicate bool `json:"likely_duplicate"`
	// AcceptedTransactionID links to the transaction created when the
	// user accepts this candidate.
	AcceptedTransactionID *uint `json:"accepted_transaction_id,omitempty"`
}
