package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
)

const invitationTTL = 14 * 24 * time.Hour

// householdService handles household, membership and invitation logic.
type householdService struct {
	db *gorm.DB
}

// NewHouseholdService creates a new HouseholdServicer.
func NewHouseholdService(db *gorm.DB) HouseholdServicer {
	return &householdService{db: db}
}

// CreateHousehold creates a household with the creator as its owner.
func (s *householdService) CreateHousehold(userID uint, name string, settlementCurrency models.Currency) (*models.Household, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "household name is required")
	}
	if !settlementCurrency.Valid() {
		return nil, apperrors.ErrInvalidCurrency
	}

	household := &models.Household{
		Name:               name,
		SettlementCurrency: settlementCurrency,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(household).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member := &models.HouseholdMember{
			HouseholdID: household.ID,
			UserID:      userID,
			Role:        models.MemberRoleOwner,
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return household, nil
}

// GetUserHouseholds returns all households the user belongs to.
func (s *householdService) GetUserHouseholds(userID uint) ([]models.Household, error) {
	var households []models.Household
	err := s.db.
		Joins("JOIN household_members ON household_members.household_id = households.id").
		Where("household_members.user_id = ? AND household_members.deleted_at IS NULL", userID).
		Find(&households).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return households, nil
}

// GetHouseholdByID returns a household the user is a member of.
func (s *householdService) GetHouseholdByID(userID, householdID uint) (*models.Household, error) {
	if err := s.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var household models.Household
	if err := s.db.Preload("Members.User").First(&household, householdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHouseholdNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &household, nil
}

// UpdateHousehold renames a household.
func (s *householdService) UpdateHousehold(userID, householdID uint, name string) (*models.Household, error) {
	household, err := s.GetHouseholdByID(userID, householdID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return household, nil
	}
	if err := s.db.Model(household).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return household, nil
}

// DeleteHousehold soft-deletes a household. Owner only; all scoped data
// goes with it.
func (s *householdService) DeleteHousehold(userID, householdID uint) error {
	member, err := s.getMember(userID, householdID)
	if err != nil {
		return err
	}
	if member.Role != models.MemberRoleOwner {
		return apperrors.ErrForbidden
	}
	if err := s.db.Delete(&models.Household{}, householdID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *householdService) getMember(userID, householdID uint) (*models.HouseholdMember, error) {
	var member models.HouseholdMember
	err := s.db.Where("household_id = ? AND user_id = ?", householdID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotHouseholdMember
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// RequireMember returns ErrNotHouseholdMember unless the user belongs
// to the household.
func (s *householdService) RequireMember(userID, householdID uint) error {
	_, err := s.getMember(userID, householdID)
	return err
}

// GetMembers returns the household's members with users preloaded.
func (s *householdService) GetMembers(householdID uint) ([]models.HouseholdMember, error) {
	var members []models.HouseholdMember
	if err := s.db.Preload("User").Where("household_id = ?", householdID).
		Order("id").Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

// RemoveMember removes a member from the household. Owners may remove
// anyone; members may only remove themselves.
func (s *householdService) RemoveMember(userID, householdID, memberUserID uint) error {
	actor, err := s.getMember(userID, householdID)
	if err != nil {
		return err
	}
	if actor.Role != models.MemberRoleOwner && userID != memberUserID {
		return apperrors.ErrForbidden
	}

	var member models.HouseholdMember
	err = s.db.Where("household_id = ? AND user_id = ?", householdID, memberUserID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrMemberNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Hard delete so the (household_id, user_id) unique index slot is
	// freed and the user can be re-invited later.
	if err := s.db.Unscoped().Delete(&member).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// InviteMember creates a pending invitation for an email address.
func (s *householdService) InviteMember(userID, householdID uint, email string) (*models.Invitation, error) {
	if err := s.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}

	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	invitation := &models.Invitation{
		HouseholdID: householdID,
		InviterID:   userID,
		Email:       strings.ToLower(email),
		Token:       hex.EncodeToString(token),
		Status:      models.InvitationStatusPending,
		ExpiresAt:   time.Now().Add(invitationTTL),
	}
	if err := s.db.Create(invitation).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return invitation, nil
}

// AcceptInvitation redeems a pending invitation token and adds the user
// as a member.
func (s *householdService) AcceptInvitation(userID uint, token string) (*models.HouseholdMember, error) {
	var invitation models.Invitation
	err := s.db.Where("token = ?", token).First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if invitation.Status != models.InvitationStatusPending {
		return nil, apperrors.ErrInvitationUsed
	}
	if time.Now().After(invitation.ExpiresAt) {
		return nil, apperrors.ErrInvitationExpired
	}

	var count int64
	s.db.Model(&models.HouseholdMember{}).
		Where("household_id = ? AND user_id = ?", invitation.HouseholdID, userID).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateMember
	}

	member := &models.HouseholdMember{
		HouseholdID: invitation.HouseholdID,
		UserID:      userID,
		Role:        models.MemberRoleMember,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&invitation).Update("status", models.InvitationStatusAccepted).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RevokeInvitation marks a pending invitation as revoked.
func (s *householdService) RevokeInvitation(userID, householdID, invitationID uint) error {
	if err := s.RequireMember(userID, householdID); err != nil {
		return err
	}

	var invitation models.Invitation
	err := s.db.Where("id = ? AND household_id = ?", invitationID, householdID).First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvitationNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if invitation.Status != models.InvitationStatusPending {
		return apperrors.ErrInvitationUsed
	}

	if err := s.db.Model(&invitation).Update("status", models.InvitationStatusRevoked).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
