package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
)

// splitRuleService handles split rule configuration. Percentages are
// validated here, at rule creation time; the resolver downstream trusts
// them and fails loudly if it ever sees an invalid pair.
type splitRuleService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewSplitRuleService creates a new SplitRuleServicer.
func NewSplitRuleService(db *gorm.DB, households HouseholdServicer) SplitRuleServicer {
	return &splitRuleService{db: db, households: households}
}

// CreateSplitRule creates the household default rule (nil expense type)
// or a per-expense-type override.
func (s *splitRuleService) CreateSplitRule(userID, householdID uint, expenseTypeID *uint, memberAID, memberBID uint, shareA, shareB int) (*models.SplitRule, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	rule := &models.SplitRule{
		HouseholdID:   householdID,
		ExpenseTypeID: expenseTypeID,
		MemberAID:     memberAID,
		MemberBID:     memberBID,
		ShareA:        shareA,
		ShareB:        shareB,
	}
	if !rule.SharesValid() {
		return nil, apperrors.ErrInvalidSplitRule
	}

	if err := s.households.RequireMember(memberAID, householdID); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrMemberNotFound, "rule members must belong to the household")
	}
	if err := s.households.RequireMember(memberBID, householdID); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrMemberNotFound, "rule members must belong to the household")
	}

	if expenseTypeID != nil {
		var count int64
		s.db.Model(&models.ExpenseType{}).
			Where("id = ? AND household_id = ?", *expenseTypeID, householdID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrExpenseTypeNotFound
		}
	}

	// At most one default and one rule per expense type. The partial
	// unique index does not cover NULL expense types on all backends,
	// so the default is also checked here.
	dupQuery := s.db.Model(&models.SplitRule{}).Where("household_id = ?", householdID)
	if expenseTypeID == nil {
		dupQuery = dupQuery.Where("expense_type_id IS NULL")
	} else {
		dupQuery = dupQuery.Where("expense_type_id = ?", *expenseTypeID)
	}
	var count int64
	if err := dupQuery.Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateSplitRule
	}

	if err := s.db.Create(rule).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateSplitRule
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// ListSplitRules returns the household's rules, default first.
func (s *splitRuleService) ListSplitRules(userID, householdID uint) ([]models.SplitRule, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var rules []models.SplitRule
	err := s.db.Preload("ExpenseType").
		Where("household_id = ?", householdID).
		Order("expense_type_id NULLS FIRST").
		Find(&rules).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}

func (s *splitRuleService) getRule(householdID, ruleID uint) (*models.SplitRule, error) {
	var rule models.SplitRule
	err := s.db.Where("id = ? AND household_id = ?", ruleID, householdID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSplitRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// UpdateSplitRule changes a rule's percentages.
func (s *splitRuleService) UpdateSplitRule(userID, householdID, ruleID uint, shareA, shareB int) (*models.SplitRule, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	rule, err := s.getRule(householdID, ruleID)
	if err != nil {
		return nil, err
	}

	if shareA < 0 || shareB < 0 || shareA+shareB != 100 {
		return nil, apperrors.ErrInvalidSplitRule
	}

	if err := s.db.Model(rule).Updates(map[string]interface{}{
		"share_a": shareA,
		"share_b": shareB,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// DeleteSplitRule removes a rule; shared transactions fall back to the
// default rule or a 50/50 split.
func (s *splitRuleService) DeleteSplitRule(userID, householdID, ruleID uint) error {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return err
	}
	rule, err := s.getRule(householdID, ruleID)
	if err != nil {
		return err
	}

	// Hard delete frees the (household_id, expense_type_id) unique
	// index slot for a replacement rule.
	if err := s.db.Unscoped().Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
