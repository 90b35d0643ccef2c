// Package errors provides custom error types for the homeledger API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Household & membership errors.
var (
	ErrHouseholdNotFound  = &AppError{Code: "HOUSEHOLD_NOT_FOUND", Message: "Household not found", StatusCode: http.StatusNotFound}
	ErrNotHouseholdMember = &AppError{Code: "NOT_HOUSEHOLD_MEMBER", Message: "You are not a member of this household", StatusCode: http.StatusForbidden}
	ErrMemberNotFound     = &AppError{Code: "MEMBER_NOT_FOUND", Message: "Household member not found", StatusCode: http.StatusNotFound}
	ErrDuplicateMember    = &AppError{Code: "DUPLICATE_MEMBER", Message: "User is already a member of this household", StatusCode: http.StatusConflict}
)

// Invitation errors.
var (
	ErrInvitationNotFound = &AppError{Code: "INVITATION_NOT_FOUND", Message: "Invitation not found", StatusCode: http.StatusNotFound}
	ErrInvitationExpired  = &AppError{Code: "INVITATION_EXPIRED", Message: "This invitation has expired", StatusCode: http.StatusGone}
	ErrInvitationUsed     = &AppError{Code: "INVITATION_USED", Message: "This invitation is no longer pending", StatusCode: http.StatusConflict}
)

// Expense type errors.
var (
	ErrExpenseTypeNotFound = &AppError{Code: "EXPENSE_TYPE_NOT_FOUND", Message: "Expense type not found", StatusCode: http.StatusNotFound}
	ErrExpenseTypeInUse    = &AppError{Code: "EXPENSE_TYPE_IN_USE", Message: "Expense type is used by existing transactions or rules", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidCurrency     = &AppError{Code: "INVALID_CURRENCY", Message: "Unsupported currency code", StatusCode: http.StatusBadRequest}
	ErrMonthSettled        = &AppError{Code: "MONTH_SETTLED", Message: "This month has been settled and its transactions are locked", StatusCode: http.StatusForbidden}
)

// Split rule errors.
var (
	ErrSplitRuleNotFound  = &AppError{Code: "SPLIT_RULE_NOT_FOUND", Message: "Split rule not found", StatusCode: http.StatusNotFound}
	ErrInvalidSplitRule   = &AppError{Code: "INVALID_SPLIT_RULE", Message: "Split percentages must be non-negative and sum to 100", StatusCode: http.StatusBadRequest}
	ErrDuplicateSplitRule = &AppError{Code: "DUPLICATE_SPLIT_RULE", Message: "A split rule already exists for this scope", StatusCode: http.StatusConflict}
)

// Settlement errors.
var (
	ErrSettlementNotFound  = &AppError{Code: "SETTLEMENT_NOT_FOUND", Message: "No settlement exists for this month", StatusCode: http.StatusNotFound}
	ErrSettlementExists    = &AppError{Code: "SETTLEMENT_EXISTS", Message: "This month has already been settled", StatusCode: http.StatusConflict}
	ErrNoTransactions      = &AppError{Code: "NO_TRANSACTIONS_IN_MONTH", Message: "Cannot settle a month with no transactions", StatusCode: http.StatusBadRequest}
	ErrPayerNotMember      = &AppError{Code: "PAYER_NOT_MEMBER", Message: "A transaction payer is no longer a household member", StatusCode: http.StatusConflict}
	ErrInvalidShareSum     = &AppError{Code: "INVALID_SHARE_SUM", Message: "Resolved split shares do not sum to the whole amount", StatusCode: http.StatusInternalServerError}
	ErrInvalidMonthKey     = &AppError{Code: "INVALID_MONTH_KEY", Message: "Month must be in YYYY-MM format", StatusCode: http.StatusBadRequest}
)

// Budget rule errors.
var (
	ErrBudgetRuleNotFound = &AppError{Code: "BUDGET_RULE_NOT_FOUND", Message: "Budget rule not found", StatusCode: http.StatusNotFound}
	ErrSameGiverReceiver  = &AppError{Code: "SAME_GIVER_RECEIVER", Message: "Budget giver and receiver must be different members", StatusCode: http.StatusBadRequest}
)

// Import errors.
var (
	ErrImportTaskNotFound = &AppError{Code: "IMPORT_TASK_NOT_FOUND", Message: "Import task not found", StatusCode: http.StatusNotFound}
	ErrImportNotReady     = &AppError{Code: "IMPORT_NOT_READY", Message: "Import task has not finished processing", StatusCode: http.StatusConflict}
	ErrCandidateNotFound  = &AppError{Code: "CANDIDATE_NOT_FOUND", Message: "Import candidate not found", StatusCode: http.StatusNotFound}
	ErrCandidateAccepted  = &AppError{Code: "CANDIDATE_ACCEPTED", Message: "Import candidate has already been accepted", StatusCode: http.StatusConflict}
)
