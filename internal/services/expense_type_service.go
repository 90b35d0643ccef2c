package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
)

// expenseTypeService handles expense type management.
type expenseTypeService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewExpenseTypeService creates a new ExpenseTypeServicer.
func NewExpenseTypeService(db *gorm.DB, households HouseholdServicer) ExpenseTypeServicer {
	return &expenseTypeService{db: db, households: households}
}

// CreateExpenseType creates an expense type in the household.
func (s *expenseTypeService) CreateExpenseType(userID, householdID uint, name, icon string) (*models.ExpenseType, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "expense type name is required")
	}

	expenseType := &models.ExpenseType{
		HouseholdID: householdID,
		Name:        name,
		Icon:        icon,
	}
	if err := s.db.Create(expenseType).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "an expense type with this name already exists")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenseType, nil
}

// ListExpenseTypes returns all expense types in the household.
func (s *expenseTypeService) ListExpenseTypes(userID, householdID uint) ([]models.ExpenseType, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var types []models.ExpenseType
	if err := s.db.Where("household_id = ?", householdID).Order("name").Find(&types).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return types, nil
}

func (s *expenseTypeService) getExpenseType(householdID, typeID uint) (*models.ExpenseType, error) {
	var expenseType models.ExpenseType
	err := s.db.Where("id = ? AND household_id = ?", typeID, householdID).First(&expenseType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseTypeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expenseType, nil
}

// UpdateExpenseType updates an expense type's name and icon.
func (s *expenseTypeService) UpdateExpenseType(userID, householdID, typeID uint, name, icon string) (*models.ExpenseType, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	expenseType, err := s.getExpenseType(householdID, typeID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if len(updates) > 0 {
		if err := s.db.Model(expenseType).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return expenseType, nil
}

// DeleteExpenseType removes an expense type unless transactions or
// rules still reference it.
func (s *expenseTypeService) DeleteExpenseType(userID, householdID, typeID uint) error {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return err
	}
	expenseType, err := s.getExpenseType(householdID, typeID)
	if err != nil {
		return err
	}

	var count int64
	s.db.Model(&models.Transaction{}).Where("expense_type_id = ?", typeID).Count(&count)
	if count > 0 {
		return apperrors.ErrExpenseTypeInUse
	}
	s.db.Model(&models.SplitRule{}).Where("expense_type_id = ?", typeID).Count(&count)
	if count > 0 {
		return apperrors.ErrExpenseTypeInUse
	}

	// Hard delete frees the (household_id, name) unique index slot so
	// the name can be reused. The type is unreferenced at this point.
	if err := s.db.Unscoped().Delete(expenseType).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
