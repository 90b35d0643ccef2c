package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
)

// budgetService handles budget rules and the advisory budget tracker.
// The tracker only reads transactions; it never touches settlement state.
type budgetService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, households HouseholdServicer) BudgetServicer {
	return &budgetService{db: db, households: households}
}

// CreateBudgetRule creates a monthly allowance from giver to receiver
// covering the given expense types.
func (s *budgetService) CreateBudgetRule(userID, householdID uint, name string, giverID, receiverID uint, amount decimal.Decimal, expenseTypeIDs []uint) (*models.BudgetRule, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget rule name is required")
	}
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if giverID == receiverID {
		return nil, apperrors.ErrSameGiverReceiver
	}
	if err := s.households.RequireMember(giverID, householdID); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrMemberNotFound, "giver is not a household member")
	}
	if err := s.households.RequireMember(receiverID, householdID); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrMemberNotFound, "receiver is not a household member")
	}

	expenseTypes, err := s.loadExpenseTypes(householdID, expenseTypeIDs)
	if err != nil {
		return nil, err
	}

	rule := &models.BudgetRule{
		HouseholdID:  householdID,
		Name:         name,
		GiverID:      giverID,
		ReceiverID:   receiverID,
		Amount:       amount,
		ExpenseTypes: expenseTypes,
	}
	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

func (s *budgetService) loadExpenseTypes(householdID uint, ids []uint) ([]models.ExpenseType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var expenseTypes []models.ExpenseType
	if err := s.db.Where("household_id = ? AND id IN ?", householdID, ids).Find(&expenseTypes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(expenseTypes) != len(ids) {
		return nil, apperrors.ErrExpenseTypeNotFound
	}
	return expenseTypes, nil
}

// ListBudgetRules returns the household's budget rules.
func (s *budgetService) ListBudgetRules(userID, householdID uint) ([]models.BudgetRule, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var rules []models.BudgetRule
	if err := s.db.Preload("ExpenseTypes").
		Where("household_id = ?", householdID).Order("id").Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}

// GetBudgetRuleByID returns a budget rule in the household.
func (s *budgetService) GetBudgetRuleByID(userID, householdID, ruleID uint) (*models.BudgetRule, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var rule models.BudgetRule
	err := s.db.Preload("ExpenseTypes").
		Where("id = ? AND household_id = ?", ruleID, householdID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// UpdateBudgetRule updates a rule's name, amount and governed expense types.
func (s *budgetService) UpdateBudgetRule(userID, householdID, ruleID uint, name string, amount *decimal.Decimal, expenseTypeIDs []uint) (*models.BudgetRule, error) {
	rule, err := s.GetBudgetRuleByID(userID, householdID, ruleID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if amount != nil {
		if !amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *amount
	}
	if len(updates) > 0 {
		if err := s.db.Model(rule).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if expenseTypeIDs != nil {
		expenseTypes, err := s.loadExpenseTypes(householdID, expenseTypeIDs)
		if err != nil {
			return nil, err
		}
		if err := s.db.Model(rule).Association("ExpenseTypes").Replace(expenseTypes); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		rule.ExpenseTypes = expenseTypes
	}
	return rule, nil
}

// DeleteBudgetRule soft-deletes a budget rule.
func (s *budgetService) DeleteBudgetRule(userID, householdID, ruleID uint) error {
	rule, err := s.GetBudgetRuleByID(userID, householdID, ruleID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// monthSpending sums the month's normalized amounts over the rule's
// governed expense types: total, and the subset paid by the giver.
func (s *budgetService) monthSpending(rule *models.BudgetRule, monthKey string) (spent, giverPaid decimal.Decimal, err error) {
	spent, giverPaid = decimal.Zero, decimal.Zero
	if len(rule.ExpenseTypes) == 0 {
		return spent, giverPaid, nil
	}

	typeIDs := make([]uint, 0, len(rule.ExpenseTypes))
	for _, et := range rule.ExpenseTypes {
		typeIDs = append(typeIDs, et.ID)
	}

	var transactions []models.Transaction
	dbErr := s.db.
		Where("household_id = ? AND month_key = ? AND expense_type_id IN ?", rule.HouseholdID, monthKey, typeIDs).
		Find(&transactions).Error
	if dbErr != nil {
		return spent, giverPaid, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	for i := range transactions {
		spent = spent.Add(transactions[i].NormalizedAmount)
		if transactions[i].PaidByID == rule.GiverID {
			giverPaid = giverPaid.Add(transactions[i].NormalizedAmount)
		}
	}
	return spent, giverPaid, nil
}

// CalculateBudgetStatus computes the rule's advisory report for a month.
// Each month's surplus or deficit rolls forward within the calendar
// year; the carryover resets to zero every January regardless of the
// prior December's balance.
func (s *budgetService) CalculateBudgetStatus(userID, householdID, ruleID uint, monthKey string) (*BudgetStatus, error) {
	rule, err := s.GetBudgetRuleByID(userID, householdID, ruleID)
	if err != nil {
		return nil, err
	}
	if !models.ValidMonthKey(monthKey) {
		return nil, apperrors.ErrInvalidMonthKey
	}

	target, err := models.MonthKeyTime(monthKey)
	if err != nil {
		return nil, apperrors.ErrInvalidMonthKey
	}

	spent, giverPaid, err := s.monthSpending(rule, monthKey)
	if err != nil {
		return nil, err
	}

	// Walk January through the month before target, accumulating carryover.
	carry := decimal.Zero
	for m := time.Date(target.Year(), time.January, 1, 0, 0, 0, 0, time.UTC); m.Before(target); m = m.AddDate(0, 1, 0) {
		monthSpent, _, err := s.monthSpending(rule, models.MonthKeyOf(m))
		if err != nil {
			return nil, err
		}
		carry = carry.Add(rule.Amount.Sub(monthSpent))
	}

	remaining := rule.Amount.Sub(spent)
	var percentUsed float64
	if rule.Amount.IsPositive() {
		percentUsed, _ = spent.Div(rule.Amount).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	}

	return &BudgetStatus{
		RuleID:                  rule.ID,
		MonthKey:                monthKey,
		Budgeted:                rule.Amount,
		Spent:                   spent,
		GiverReimbursement:      giverPaid,
		Remaining:               remaining,
		PercentUsed:             percentUsed,
		IsOverBudget:            spent.GreaterThan(rule.Amount),
		NetBalanceWithCarryover: carry.Add(remaining),
	}, nil
}
