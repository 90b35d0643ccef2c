package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/services"
)

// BudgetHandler handles budget rule and budget status requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRuleRequest represents the request payload for creating
// a budget rule.
type CreateBudgetRuleRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=100"`
	GiverID        uint   `json:"giver_id" binding:"required"`
	ReceiverID     uint   `json:"receiver_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	ExpenseTypeIDs []uint `json:"expense_type_ids"`
}

// UpdateBudgetRuleRequest represents the request payload for updating
// a budget rule. Nil fields are left unchanged.
type UpdateBudgetRuleRequest struct {
	Name           string  `json:"name" binding:"omitempty,min=1,max=100"`
	Amount         *string `json:"amount"`
	ExpenseTypeIDs []uint  `json:"expense_type_ids"`
}

// BudgetStatusQuery selects the month to report on.
type BudgetStatusQuery struct {
	Month string `form:"month" binding:"required,month_key"`
}

// CreateBudgetRule creates a budget rule
// @Summary     Create a budget rule
// @Description Create a monthly allowance from one member to another over a set of expense types
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       request body CreateBudgetRuleRequest true "Budget rule details"
// @Success     201 {object} models.BudgetRule "Rule created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /households/{household_id}/budget-rules [post]
func (h *BudgetHandler) CreateBudgetRule(c *gin.Context) {
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

	var req CreateBudgetRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a decimal number"))
		return
	}

	rule, err := h.budgetService.CreateBudgetRule(userID, hhID, req.Name, req.GiverID, req.ReceiverID, amount, req.ExpenseTypeIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget_rule": rule})
}

// ListBudgetRules returns the household's budget rules
// @Summary     List budget rules
// @Description List the household's budget rules
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {array} models.BudgetRule "Budget rules"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/budget-rules [get]
func (h *BudgetHandler) ListBudgetRules(c *gin.Context) {
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

	rules, err := h.budgetService.ListBudgetRules(userID, hhID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget_rules": rules})
}

// UpdateBudgetRule updates a budget rule
// @Summary     Update a budget rule
// @Description Update a budget rule's name, amount or expense types
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       rule_id path int true "Rule ID"
// @Param       request body UpdateBudgetRuleRequest true "New values"
// @Success     200 {object} models.BudgetRule "Rule updated"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/budget-rules/{rule_id} [put]
func (h *BudgetHandler) UpdateBudgetRule(c *gin.Context) {
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

	var req UpdateBudgetRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var amount *decimal.Decimal
	if req.Amount != nil {
		parsed, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a decimal number"))
			return
		}
		amount = &parsed
	}

	rule, err := h.budgetService.UpdateBudgetRule(userID, hhID, ruleID, req.Name, amount, req.ExpenseTypeIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget_rule": rule})
}

// DeleteBudgetRule deletes a budget rule
// @Summary     Delete a budget rule
// @Description Delete a budget rule
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       rule_id path int true "Rule ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/budget-rules/{rule_id} [delete]
func (h *BudgetHandler) DeleteBudgetRule(c *gin.Context) {
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

	if err := h.budgetService.DeleteBudgetRule(userID, hhID, ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget rule deleted"})
}

// GetBudgetStatus returns the rule's advisory report for a month
// @Summary     Get budget status
// @Description Report budgeted vs spent for a rule and month, including the year-to-date carryover
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       rule_id path int true "Rule ID"
// @Param       month query string true "Month key YYYY-MM"
// @Success     200 {object} services.BudgetStatus "Budget status"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/budget-rules/{rule_id}/status [get]
func (h *BudgetHandler) GetBudgetStatus(c *gin.Context) {
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

	var query BudgetStatusQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	status, err := h.budgetService.CalculateBudgetStatus(userID, hhID, ruleID, query.Month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget_status": status})
}
