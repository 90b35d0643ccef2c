package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/services"
)

// SplitRuleHandler handles split rule requests.
type SplitRuleHandler struct {
	splitRuleService services.SplitRuleServicer
}

// NewSplitRuleHandler creates a new SplitRuleHandler.
func NewSplitRuleHandler(splitRuleService services.SplitRuleServicer) *SplitRuleHandler {
	return &SplitRuleHandler{splitRuleService: splitRuleService}
}

// CreateSplitRuleRequest represents the request payload for creating a
// split rule. Omitting expense_type_id makes it the household default.
type CreateSplitRuleRequest struct {
	ExpenseTypeID *uint `json:"expense_type_id"`
	MemberAID     uint  `json:"member_a_id" binding:"required"`
	MemberBID     uint  `json:"member_b_id" binding:"required"`
	ShareA        int   `json:"share_a" binding:"min=0,max=100"`
	ShareB        int   `json:"share_b" binding:"min=0,max=100"`
}

// UpdateSplitRuleRequest represents the request payload for updating
// a split rule's percentages.
type UpdateSplitRuleRequest struct {
	ShareA int `json:"share_a" binding:"min=0,max=100"`
	ShareB int `json:"share_b" binding:"min=0,max=100"`
}

// CreateSplitRule creates a split rule
// @Summary     Create a split rule
// @Description Create a per-type or default split rule, shares must sum to 100
// @Tags        split-rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       request body CreateSplitRuleRequest true "Split rule details"
// @Success     201 {object} models.SplitRule "Rule created"
// @Failure     400 {object} ErrorResponse "Shares do not sum to 100"
// @Failure     409 {object} ErrorResponse "Duplicate rule"
// @Router      /households/{household_id}/split-rules [post]
func (h *SplitRuleHandler) CreateSplitRule(c *gin.Context) {
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

	var req CreateSplitRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.splitRuleService.CreateSplitRule(userID, hhID, req.ExpenseTypeID, req.MemberAID, req.MemberBID, req.ShareA, req.ShareB)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"split_rule": rule})
}

// ListSplitRules returns the household's split rules
// @Summary     List split rules
// @Description List the household's split rules, default rule first
// @Tags        split-rules
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {array} models.SplitRule "Split rules"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/split-rules [get]
func (h *SplitRuleHandler) ListSplitRules(c *gin.Context) {
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

	rules, err := h.splitRuleService.ListSplitRules(userID, hhID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"split_rules": rules})
}

// UpdateSplitRule updates a split rule's percentages
// @Summary     Update a split rule
// @Description Update a split rule's share percentages
// @Tags        split-rules
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       rule_id path int true "Rule ID"
// @Param       request body UpdateSplitRuleRequest true "New shares"
// @Success     200 {object} models.SplitRule "Rule updated"
// @Failure     400 {object} ErrorResponse "Shares do not sum to 100"
// @Router      /households/{household_id}/split-rules/{rule_id} [put]
func (h *SplitRuleHandler) UpdateSplitRule(c *gin.Context) {
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
	ruleID, err := parsePathID(c, "rule_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSplitRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.splitRuleService.UpdateSplitRule(userID, hhID, ruleID, req.ShareA, req.ShareB)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"split_rule": rule})
}

// DeleteSplitRule deletes a split rule
// @Summary     Delete a split rule
// @Description Delete a split rule, affected transactions fall back to the default or equal split
// @Tags        split-rules
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       rule_id path int true "Rule ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/split-rules/{rule_id} [delete]
func (h *SplitRuleHandler) DeleteSplitRule(c *gin.Context) {
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
	ruleID, err := parsePathID(c, "rule_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.splitRuleService.DeleteSplitRule(userID, hhID, ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Split rule deleted"})
}
