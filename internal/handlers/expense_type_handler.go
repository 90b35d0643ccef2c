package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/services"
)

// ExpenseTypeHandler handles expense type requests.
type ExpenseTypeHandler struct {
	expenseTypeService services.ExpenseTypeServicer
}

// NewExpenseTypeHandler creates a new ExpenseTypeHandler.
func NewExpenseTypeHandler(expenseTypeService services.ExpenseTypeServicer) *ExpenseTypeHandler {
	return &ExpenseTypeHandler{expenseTypeService: expenseTypeService}
}

// ExpenseTypeRequest represents the request payload for creating or
// updating an expense type.
type ExpenseTypeRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	Icon string `json:"icon" binding:"max=50"`
}

// CreateExpenseType creates an expense type
// @Summary     Create an expense type
// @Description Create an expense type in the household
// @Tags        expense-types
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       request body ExpenseTypeRequest true "Expense type details"
// @Success     201 {object} models.ExpenseType "Created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/expense-types [post]
func (h *ExpenseTypeHandler) CreateExpenseType(c *gin.Context) {
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

	var req ExpenseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expenseType, err := h.expenseTypeService.CreateExpenseType(userID, hhID, req.Name, req.Icon)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense_type": expenseType})
}

// ListExpenseTypes returns the household's expense types
// @Summary     List expense types
// @Description List the household's expense types
// @Tags        expense-types
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {array} models.ExpenseType "Expense types"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/expense-types [get]
func (h *ExpenseTypeHandler) ListExpenseTypes(c *gin.Context) {
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

	expenseTypes, err := h.expenseTypeService.ListExpenseTypes(userID, hhID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense_types": expenseTypes})
}

// UpdateExpenseType updates an expense type
// @Summary     Update an expense type
// @Description Update an expense type's name or icon
// @Tags        expense-types
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       type_id path int true "Expense type ID"
// @Param       request body ExpenseTypeRequest true "New values"
// @Success     200 {object} models.ExpenseType "Updated"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/expense-types/{type_id} [put]
func (h *ExpenseTypeHandler) UpdateExpenseType(c *gin.Context) {
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
	typeID, err := parsePathID(c, "type_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ExpenseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	expenseType, err := h.expenseTypeService.UpdateExpenseType(userID, hhID, typeID, req.Name, req.Icon)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense_type": expenseType})
}

// DeleteExpenseType deletes an unused expense type
// @Summary     Delete an expense type
// @Description Delete an expense type that no transaction or rule references
// @Tags        expense-types
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       type_id path int true "Expense type ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     409 {object} ErrorResponse "Expense type in use"
// @Router      /households/{household_id}/expense-types/{type_id} [delete]
func (h *ExpenseTypeHandler) DeleteExpenseType(c *gin.Context) {
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
	typeID, err := parsePathID(c, "type_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseTypeService.DeleteExpenseType(userID, hhID, typeID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense type deleted"})
}
