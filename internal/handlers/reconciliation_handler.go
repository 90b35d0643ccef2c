package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeledger/internal/services"
)

// ReconciliationHandler handles month reconciliation and settlement
// requests.
type ReconciliationHandler struct {
	reconciliationService services.ReconciliationServicer
	auditService          services.AuditServicer
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationService services.ReconciliationServicer, auditService services.AuditServicer) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: reconciliationService, auditService: auditService}
}

// GetReconciliation returns the month's live reconciliation report
// @Summary     Get month reconciliation
// @Description Compute who owes whom for a month without settling it
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       month path string true "Month key YYYY-MM"
// @Success     200 {object} services.ReconciliationResult "Reconciliation report"
// @Failure     400 {object} ErrorResponse "Invalid month key"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/reconciliation/{month} [get]
func (h *ReconciliationHandler) GetReconciliation(c *gin.Context) {
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

	result, err := h.reconciliationService.CalculateReconciliation(userID, hhID, c.Param("month"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reconciliation": result})
}

// SettleMonth freezes a month's reconciliation into a settlement
// @Summary     Settle a month
// @Description Record the month's settlement and lock its transactions
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       month path string true "Month key YYYY-MM"
// @Success     201 {object} models.Settlement "Settlement recorded"
// @Failure     409 {object} ErrorResponse "Month already settled"
// @Failure     400 {object} ErrorResponse "No transactions in month"
// @Router      /households/{household_id}/settlements/{month} [post]
func (h *ReconciliationHandler) SettleMonth(c *gin.Context) {
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
	monthKey := c.Param("month")

	settlement, err := h.reconciliationService.Settle(userID, hhID, monthKey)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "SETTLE_MONTH", "settlement", settlement.ID, c.ClientIP(),
		map[string]interface{}{"month_key": monthKey})

	c.JSON(http.StatusCreated, gin.H{"settlement": settlement})
}

// UnsettleMonth reopens a settled month
// @Summary     Unsettle a month
// @Description Delete the month's settlement, unlocking its transactions
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       month path string true "Month key YYYY-MM"
// @Success     200 {object} map[string]string "Month reopened"
// @Failure     404 {object} ErrorResponse "Settlement not found"
// @Router      /households/{household_id}/settlements/{month} [delete]
func (h *ReconciliationHandler) UnsettleMonth(c *gin.Context) {
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
	monthKey := c.Param("month")

	if err := h.reconciliationService.Unsettle(userID, hhID, monthKey); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UNSETTLE_MONTH", "settlement", 0, c.ClientIP(),
		map[string]interface{}{"month_key": monthKey})

	c.JSON(http.StatusOK, gin.H{"message": "Month reopened"})
}

// ListSettlements returns the household's settlement history
// @Summary     List settlements
// @Description List the household's settlements, newest month first
// @Tags        reconciliation
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Success     200 {array} models.Settlement "Settlements"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/settlements [get]
func (h *ReconciliationHandler) ListSettlements(c *gin.Context) {
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

	settlements, err := h.reconciliationService.ListSettlements(userID, hhID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}
