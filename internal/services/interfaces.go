package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"homeledger/internal/models"
	"homeledger/internal/pagination"
)

// Normalizer converts an amount between currencies at a date's
// historical rate. Satisfied by currency.Normalizer.
type Normalizer interface {
	Normalize(ctx context.Context, amount decimal.Decimal, from, to models.Currency, date time.Time) (decimal.Decimal, error)
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, displayName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// HouseholdServicer defines the contract for household, membership and
// invitation management.
type HouseholdServicer interface {
	CreateHousehold(userID uint, name string, settlementCurrency models.Currency) (*models.Household, error)
	GetUserHouseholds(userID uint) ([]models.Household, error)
	GetHouseholdByID(userID, householdID uint) (*models.Household, error)
	UpdateHousehold(userID, householdID uint, name string) (*models.Household, error)
	DeleteHousehold(userID, householdID uint) error

	// RequireMember returns ErrNotHouseholdMember unless userID belongs
	// to the household. Every household-scoped service call goes
	// through this.
	RequireMember(userID, householdID uint) error
	GetMembers(householdID uint) ([]models.HouseholdMember, error)
	RemoveMember(userID, householdID, memberUserID uint) error

	InviteMember(userID, householdID uint, email string) (*models.Invitation, error)
	AcceptInvitation(userID uint, token string) (*models.HouseholdMember, error)
	RevokeInvitation(userID, householdID, invitationID uint) error
}

// ExpenseTypeServicer defines the contract for expense type management.
type ExpenseTypeServicer interface {
	CreateExpenseType(userID, householdID uint, name, icon string) (*models.ExpenseType, error)
	ListExpenseTypes(userID, householdID uint) ([]models.ExpenseType, error)
	UpdateExpenseType(userID, householdID, typeID uint, name, icon string) (*models.ExpenseType, error)
	DeleteExpenseType(userID, householdID, typeID uint) error
}

// TransactionInput carries the mutable fields of a transaction.
type TransactionInput struct {
	Date          time.Time
	Merchant      string
	Amount        decimal.Decimal
	Currency      models.Currency
	PaidByID      uint
	SplitCategory models.SplitCategory
	SplitMemberID *uint
	ExpenseTypeID *uint
	Notes         string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	MonthKey      *string
	PaidByID      *uint
	SplitCategory *models.SplitCategory
	ExpenseTypeID *uint
}

// TransactionServicer defines the contract for transaction CRUD. Every
// mutation consults the settlement ledger first and is rejected with
// MONTH_SETTLED while the transaction's month is settled.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID, householdID uint, input TransactionInput) (*models.Transaction, error)
	GetTransactionByID(userID, householdID, transactionID uint) (*models.Transaction, error)
	ListTransactions(userID, householdID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(ctx context.Context, userID, householdID, transactionID uint, input TransactionInput) (*models.Transaction, error)
	DeleteTransaction(userID, householdID, transactionID uint) error
	ExportMonthCSV(userID, householdID uint, monthKey string, w io.Writer) error
}

// SplitRuleServicer defines the contract for split rule configuration.
type SplitRuleServicer interface {
	CreateSplitRule(userID, householdID uint, expenseTypeID *uint, memberAID, memberBID uint, shareA, shareB int) (*models.SplitRule, error)
	ListSplitRules(userID, householdID uint) ([]models.SplitRule, error)
	UpdateSplitRule(userID, householdID, ruleID uint, shareA, shareB int) (*models.SplitRule, error)
	DeleteSplitRule(userID, householdID, ruleID uint) error
}

// ReconciliationResult is the engine's output for one household month:
// per-member paid, share and balance totals keyed by user id, reduced
// to pairwise settlement instructions.
type ReconciliationResult struct {
	MonthKey     string                         `json:"month_key"`
	Currency     models.Currency                `json:"currency"`
	Paid         map[uint]decimal.Decimal       `json:"paid"`
	Share        map[uint]decimal.Decimal       `json:"share"`
	Balance      map[uint]decimal.Decimal       `json:"balance"`
	Instructions []models.SettlementInstruction `json:"instructions"`
	Settled      bool                           `json:"settled"`
	Message      string                         `json:"settlement_message"`
}

// ReconciliationServicer is the reconciliation engine plus the
// settlement ledger: the single source of truth for whether a month's
// transactions may change.
type ReconciliationServicer interface {
	CalculateReconciliation(userID, householdID uint, monthKey string) (*ReconciliationResult, error)
	Settle(userID, householdID uint, monthKey string) (*models.Settlement, error)
	Unsettle(userID, householdID uint, monthKey string) error
	ListSettlements(userID, householdID uint) ([]models.Settlement, error)

	// IsMonthSettled is consulted by the transaction CRUD layer before
	// any mutation.
	IsMonthSettled(householdID uint, monthKey string) (bool, error)
}

// BudgetStatus is the advisory budget report for one rule and month.
type BudgetStatus struct {
	RuleID             uint            `json:"rule_id"`
	MonthKey           string          `json:"month_key"`
	Budgeted           decimal.Decimal `json:"budgeted"`
	Spent              decimal.Decimal `json:"spent"`
	GiverReimbursement decimal.Decimal `json:"giver_reimbursement"`
	Remaining          decimal.Decimal `json:"remaining"`
	PercentUsed        float64         `json:"percent_used"`
	IsOverBudget       bool            `json:"is_over_budget"`
	// NetBalanceWithCarryover rolls each month's surplus or deficit
	// forward within the calendar year; January starts from zero.
	NetBalanceWithCarryover decimal.Decimal `json:"net_balance_with_carryover"`
}

// BudgetServicer defines the contract for budget rules and the
// read-only budget tracker.
type BudgetServicer interface {
	CreateBudgetRule(userID, householdID uint, name string, giverID, receiverID uint, amount decimal.Decimal, expenseTypeIDs []uint) (*models.BudgetRule, error)
	ListBudgetRules(userID, householdID uint) ([]models.BudgetRule, error)
	GetBudgetRuleByID(userID, householdID, ruleID uint) (*models.BudgetRule, error)
	UpdateBudgetRule(userID, householdID, ruleID uint, name string, amount *decimal.Decimal, expenseTypeIDs []uint) (*models.BudgetRule, error)
	DeleteBudgetRule(userID, householdID, ruleID uint) error
	CalculateBudgetStatus(userID, householdID, ruleID uint, monthKey string) (*BudgetStatus, error)
}

// ImportServicer defines the contract for the bank-statement import
// pipeline surface.
type ImportServicer interface {
	EnqueueImport(userID, householdID uint, filename string, payload []byte) (*models.ImportTask, error)
	GetTask(userID, householdID uint, taskID string) (*models.ImportTask, error)
	ListCandidates(userID, householdID uint, taskID string) ([]models.ImportCandidate, error)
	AcceptCandidate(ctx context.Context, userID, householdID uint, candidateID uint, split models.SplitCategory, splitMemberID, expenseTypeID *uint) (*models.Transaction, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
