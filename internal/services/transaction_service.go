package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
	"homeledger/internal/pagination"
)

// transactionService handles transaction CRUD, normalization and the
// month-lock contract with the settlement ledger.
type transactionService struct {
	db             *gorm.DB
	households     HouseholdServicer
	reconciliation ReconciliationServicer
	normalizer     Normalizer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, households HouseholdServicer, reconciliation ReconciliationServicer, normalizer Normalizer) TransactionServicer {
	return &transactionService{
		db:             db,
		households:     households,
		reconciliation: reconciliation,
		normalizer:     normalizer,
	}
}

// requireUnsettled rejects the mutation with MONTH_SETTLED if the month
// is locked by a settlement.
func (s *transactionService) requireUnsettled(householdID uint, monthKey string) error {
	settled, err := s.reconciliation.IsMonthSettled(householdID, monthKey)
	if err != nil {
		return err
	}
	if settled {
		return apperrors.WithMessage(apperrors.ErrMonthSettled,
			fmt.Sprintf("%s has been settled and its transactions are locked", monthKey))
	}
	return nil
}

func (s *transactionService) validateInput(householdID uint, input *TransactionInput) (*models.Household, error) {
	if input.Date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date is required")
	}
	if input.Merchant == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "merchant is required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !input.Currency.Valid() {
		return nil, apperrors.ErrInvalidCurrency
	}

	var household models.Household
	if err := s.db.First(&household, householdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHouseholdNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// The payer and any designated split member must belong to the household.
	if err := s.households.RequireMember(input.PaidByID, householdID); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrMemberNotFound, "payer is not a household member")
	}
	switch input.SplitCategory {
	case models.SplitShared:
		// No designated member.
	case models.SplitCovered, models.SplitPersonal:
		if input.SplitMemberID == nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("%s transactions require a designated member", input.SplitCategory))
		}
		if err := s.households.RequireMember(*input.SplitMemberID, householdID); err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrMemberNotFound, "designated split member is not a household member")
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown split category %q", input.SplitCategory))
	}

	if input.ExpenseTypeID != nil {
		var count int64
		s.db.Model(&models.ExpenseType{}).
			Where("id = ? AND household_id = ?", *input.ExpenseTypeID, householdID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrExpenseTypeNotFound
		}
	}

	return &household, nil
}

// CreateTransaction records a new expense, normalizing its amount into
// the household's settlement currency at the transaction date's rate.
func (s *transactionService) CreateTransaction(ctx context.Context, userID, householdID uint, input TransactionInput) (*models.Transaction, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	household, err := s.validateInput(householdID, &input)
	if err != nil {
		return nil, err
	}

	if err := s.requireUnsettled(householdID, models.MonthKeyOf(input.Date)); err != nil {
		return nil, err
	}

	normalized, err := s.normalizer.Normalize(ctx, input.Amount, input.Currency, household.SettlementCurrency, input.Date)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction := &models.Transaction{
		HouseholdID:      householdID,
		Date:             input.Date,
		Merchant:         input.Merchant,
		Amount:           input.Amount,
		Currency:         input.Currency,
		NormalizedAmount: normalized,
		PaidByID:         input.PaidByID,
		SplitCategory:    input.SplitCategory,
		SplitMemberID:    input.SplitMemberID,
		ExpenseTypeID:    input.ExpenseTypeID,
		Notes:            input.Notes,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetTransactionByID retrieves a transaction in a household the user belongs to.
func (s *transactionService) GetTransactionByID(userID, householdID, transactionID uint) (*models.Transaction, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var transaction models.Transaction
	err := s.db.Preload("ExpenseType").Preload("PaidBy").
		Where("id = ? AND household_id = ?", transactionID, householdID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// ListTransactions returns a paginated, filtered list of the household's
// transactions, newest first.
func (s *transactionService) ListTransactions(userID, householdID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("household_id = ?", householdID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("ExpenseType").Scopes(pagination.Paginate(page)).
		Order("date DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.MonthKey != nil {
		q = q.Where("month_key = ?", *f.MonthKey)
	}
	if f.PaidByID != nil {
		q = q.Where("paid_by_id = ?", *f.PaidByID)
	}
	if f.SplitCategory != nil {
		q = q.Where("split_category = ?", *f.SplitCategory)
	}
	if f.ExpenseTypeID != nil {
		q = q.Where("expense_type_id = ?", *f.ExpenseTypeID)
	}
	return q
}

// UpdateTransaction replaces a transaction's fields and recomputes the
// normalized amount. Both the current month and the new month (if the
// date moved) must be unsettled.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, householdID, transactionID uint, input TransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, householdID, transactionID)
	if err != nil {
		return nil, err
	}

	household, err := s.validateInput(householdID, &input)
	if err != nil {
		return nil, err
	}

	if err := s.requireUnsettled(householdID, transaction.MonthKey); err != nil {
		return nil, err
	}
	newMonth := models.MonthKeyOf(input.Date)
	if newMonth != transaction.MonthKey {
		if err := s.requireUnsettled(householdID, newMonth); err != nil {
			return nil, err
		}
	}

	normalized, err := s.normalizer.Normalize(ctx, input.Amount, input.Currency, household.SettlementCurrency, input.Date)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	transaction.Date = input.Date
	transaction.Merchant = input.Merchant
	transaction.Amount = input.Amount
	transaction.Currency = input.Currency
	transaction.NormalizedAmount = normalized
	transaction.PaidByID = input.PaidByID
	transaction.SplitCategory = input.SplitCategory
	transaction.SplitMemberID = input.SplitMemberID
	transaction.ExpenseTypeID = input.ExpenseTypeID
	transaction.Notes = input.Notes

	if err := s.db.Save(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction unless its month is settled.
func (s *transactionService) DeleteTransaction(userID, householdID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, householdID, transactionID)
	if err != nil {
		return err
	}

	if err := s.requireUnsettled(householdID, transaction.MonthKey); err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// splitLabel renders a transaction's split category for the CSV export.
func splitLabel(tx *models.Transaction, names map[uint]string) string {
	switch tx.SplitCategory {
	case models.SplitShared:
		return "Shared"
	case models.SplitCovered:
		if tx.SplitMemberID != nil {
			return fmt.Sprintf("Covered for %s", names[*tx.SplitMemberID])
		}
		return "Covered"
	case models.SplitPersonal:
		if tx.SplitMemberID != nil {
			return fmt.Sprintf("Personal (%s)", names[*tx.SplitMemberID])
		}
		return "Personal"
	}
	return string(tx.SplitCategory)
}

// ExportMonthCSV writes one row per transaction for the month followed
// by a summary section with the reconciliation message. This layout is
// the module's one wire-format contract and must stay stable.
func (s *transactionService) ExportMonthCSV(userID, householdID uint, monthKey string, w io.Writer) error {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return err
	}
	if !models.ValidMonthKey(monthKey) {
		return apperrors.ErrInvalidMonthKey
	}

	members, err := s.households.GetMembers(householdID)
	if err != nil {
		return err
	}
	names := make(map[uint]string, len(members))
	for _, m := range members {
		names[m.UserID] = memberName(&m)
	}

	var transactions []models.Transaction
	if err := s.db.Where("household_id = ? AND month_key = ?", householdID, monthKey).
		Order("date, id").Find(&transactions).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result, err := s.reconciliation.CalculateReconciliation(userID, householdID, monthKey)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "merchant", "amount", "currency", "paid_by", "split", "notes"}); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range transactions {
		tx := &transactions[i]
		row := []string{
			tx.Date.Format("2006-01-02"),
			tx.Merchant,
			tx.Amount.StringFixed(2),
			string(tx.Currency),
			names[tx.PaidByID],
			splitLabel(tx, names),
			tx.Notes,
		}
		if err := cw.Write(row); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := cw.Write([]string{"summary", result.Message}); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
