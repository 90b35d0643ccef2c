package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
	"homeledger/internal/services"
)

// HouseholdHandler handles household, membership and invitation requests.
type HouseholdHandler struct {
	householdService services.HouseholdServicer
	auditService     services.AuditServicer
}

// NewHouseholdHandler creates a new HouseholdHandler.
func NewHouseholdHandler(householdService services.HouseholdServicer, auditService services.AuditServicer) *HouseholdHandler {
	return &HouseholdHandler{householdService: householdService, auditService: auditService}
}

// CreateHouseholdRequest represents the request payload for creating a household
type CreateHouseholdRequest struct {
	Name               string `json:"name" binding:"required,min=1,max=100"`
	SettlementCurrency string `json:"settlement_currency" binding:"required,currency_code"`
}

// UpdateHouseholdRequest represents the request payload for renaming a household
type UpdateHouseholdRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// InviteMemberRequest represents the request payload for inviting a member
type InviteMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AcceptInvitationRequest carries the invitation token.
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// CreateHousehold handles household creation
// @Summary     Create a household
// @Description Create a household with the caller as owner
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateHouseholdRequest true "Household details"
// @Success     201 {object} models.Household "Household created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /households [post]
func (h *HouseholdHandler) CreateHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	household, err := h.householdService.CreateHousehold(userID, req.Name, models.Currency(req.SettlementCurrency))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_HOUSEHOLD", "household", household.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "settlement_currency": req.SettlementCurrency})

	c.JSON(http.StatusCreated, gin.H{"household": household})
}

// ListHouseholds returns the caller's households
// @Summary     List households
// @Description List all households the caller belongs to
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Household "Households"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /households [get]
func (h *HouseholdHandler) ListHouseholds(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	households, err := h.householdService.GetUserHouseholds(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"households": households})
}

// GetHousehold returns one household with its members
// @Summary     Get a household
// @Description Get a household with its members
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {object} models.Household "Household"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id} [get]
func (h *HouseholdHandler) GetHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	household, err := h.householdService.GetHouseholdByID(userID, hhID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"household": household})
}

// UpdateHousehold renames a household
// @Summary     Update a household
// @Description Rename a household
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       request body UpdateHouseholdRequest true "New name"
// @Success     200 {object} models.Household "Household updated"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id} [put]
func (h *HouseholdHandler) UpdateHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	household, err := h.householdService.UpdateHousehold(userID, hhID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"household": household})
}

// DeleteHousehold deletes a household
// @Summary     Delete a household
// @Description Delete a household, owner only
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     403 {object} ErrorResponse "Not the owner"
// @Router      /households/{household_id} [delete]
func (h *HouseholdHandler) DeleteHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.householdService.DeleteHousehold(userID, hhID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_HOUSEHOLD", "household", hhID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Household deleted"})
}

// ListMembers returns the household's members
// @Summary     List members
// @Description List all members of a household
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {array} models.HouseholdMember "Members"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/members [get]
func (h *HouseholdHandler) ListMembers(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.householdService.RequireMember(userID, hhID); err != nil {
		respondWithError(c, err)
		return
	}
	members, err := h.householdService.GetMembers(hhID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// RemoveMember removes a member from the household
// @Summary     Remove a member
// @Description Remove a member, owner only unless removing yourself
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       user_id path int true "Member user ID"
// @Success     200 {object} map[string]string "Removed"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /households/{household_id}/members/{user_id} [delete]
func (h *HouseholdHandler) RemoveMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	memberUserID, err := parsePathID(c, "user_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.householdService.RemoveMember(userID, hhID, memberUserID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REMOVE_MEMBER", "household", hhID, c.ClientIP(),
		map[string]interface{}{"removed_user_id": memberUserID})

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// InviteMember invites a user by email
// @Summary     Invite a member
// @Description Create an invitation to join the household
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       request body InviteMemberRequest true "Invitee email"
// @Success     201 {object} models.Invitation "Invitation created"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/invitations [post]
func (h *HouseholdHandler) InviteMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	invitation, err := h.householdService.InviteMember(userID, hhID, req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "INVITE_MEMBER", "invitation", invitation.ID, c.ClientIP(),
		map[string]interface{}{"email": req.Email})

	c.JSON(http.StatusCreated, gin.H{"invitation": invitation})
}

// AcceptInvitation joins the caller to a household via invitation token
// @Summary     Accept an invitation
// @Description Join a household using an invitation token
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AcceptInvitationRequest true "Invitation token"
// @Success     200 {object} models.HouseholdMember "Joined"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     410 {object} ErrorResponse "Invitation expired"
// @Router      /invitations/accept [post]
func (h *HouseholdHandler) AcceptInvitation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.householdService.AcceptInvitation(userID, req.Token)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ACCEPT_INVITATION", "household", member.HouseholdID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// RevokeInvitation revokes a pending invitation
// @Summary     Revoke an invitation
// @Description Revoke a pending invitation
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       invitation_id path int true "Invitation ID"
// @Success     200 {object} map[string]string "Revoked"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Router      /households/{household_id}/invitations/{invitation_id} [delete]
func (h *HouseholdHandler) RevokeInvitation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	hhID, err := householdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	invitationID, err := parsePathID(c, "invitation_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.householdService.RevokeInvitation(userID, hhID, invitationID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}
