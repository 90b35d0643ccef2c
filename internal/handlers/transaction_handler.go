package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
	"homeledger/internal/pagination"
	"homeledger/internal/services"
)

// TransactionHandler handles transaction requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// TransactionRequest represents the request payload for creating or
// updating a transaction. Amount is a decimal string to avoid float
// precision loss in transit.
type TransactionRequest struct {
	Date          string `json:"date" binding:"required"`
	Merchant      string `json:"merchant" binding:"required,min=1,max=200"`
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required,currency_code"`
	PaidByID      uint   `json:"paid_by_id" binding:"required"`
	SplitCategory string `json:"split_category" binding:"required,split_category"`
	SplitMemberID *uint  `json:"split_member_id"`
	ExpenseTypeID *uint  `json:"expense_type_id"`
	Notes         string `json:"notes" binding:"max=500"`
}

// TransactionListQuery holds the optional list filters.
type TransactionListQuery struct {
	pagination.PageRequest
	MonthKey      *string `form:"month" binding:"omitempty,month_key"`
	PaidByID      *uint   `form:"paid_by"`
	SplitCategory *string `form:"split" binding:"omitempty,split_category"`
	ExpenseTypeID *uint   `form:"expense_type"`
}

func (req *TransactionRequest) toInput() (services.TransactionInput, error) {
	var input services.TransactionInput

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return input, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return input, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be a decimal number")
	}

	input = services.TransactionInput{
		Date:          date,
		Merchant:      req.Merchant,
		Amount:        amount,
		Currency:      models.Currency(req.Currency),
		PaidByID:      req.PaidByID,
		SplitCategory: models.SplitCategory(req.SplitCategory),
		SplitMemberID: req.SplitMemberID,
		ExpenseTypeID: req.ExpenseTypeID,
		Notes:         req.Notes,
	}
	return input, nil
}

// CreateTransaction records an expense
// @Summary     Create a transaction
// @Description Record an expense in the household
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Month already settled"
// @Router      /households/{household_id}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
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

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, hhID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"merchant": input.Merchant, "amount": req.Amount, "currency": req.Currency})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransaction returns one transaction
// @Summary     Get a transaction
// @Description Get a transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       transaction_id path int true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/transactions/{transaction_id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
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
	transactionID, err := parsePathID(c, "transaction_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, hhID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// ListTransactions returns a paginated transaction list
// @Summary     List transactions
// @Description List household transactions with optional month, payer, split and expense type filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       month query string false "Month key YYYY-MM"
// @Param       paid_by query int false "Payer user ID"
// @Param       split query string false "Split category"
// @Param       expense_type query int false "Expense type ID"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
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

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	query.Defaults()

	filter := services.TransactionFilter{
		MonthKey:      query.MonthKey,
		PaidByID:      query.PaidByID,
		ExpenseTypeID: query.ExpenseTypeID,
	}
	if query.SplitCategory != nil {
		split := models.SplitCategory(*query.SplitCategory)
		filter.SplitCategory = &split
	}

	page, err := h.transactionService.ListTransactions(userID, hhID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateTransaction updates a transaction
// @Summary     Update a transaction
// @Description Update a transaction in an unsettled month
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       transaction_id path int true "Transaction ID"
// @Param       request body TransactionRequest true "New values"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     403 {object} ErrorResponse "Month already settled"
// @Router      /households/{household_id}/transactions/{transaction_id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
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
	transactionID, err := parsePathID(c, "transaction_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, hhID, transactionID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction deletes a transaction
// @Summary     Delete a transaction
// @Description Delete a transaction in an unsettled month
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       transaction_id path int true "Transaction ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     403 {object} ErrorResponse "Month already settled"
// @Router      /households/{household_id}/transactions/{transaction_id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
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
	transactionID, err := parsePathID(c, "transaction_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, hhID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// ExportMonth streams a month's transactions as CSV
// @Summary     Export a month as CSV
// @Description Download the month's transactions and settlement summary as CSV
// @Tags        transactions
// @Produce     text/csv
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       month path string true "Month key YYYY-MM"
// @Success     200 {string} string "CSV data"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{household_id}/transactions/export/{month} [get]
func (h *TransactionHandler) ExportMonth(c *gin.Context) {
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

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transactions-"+monthKey+".csv"))

	if err := h.transactionService.ExportMonthCSV(userID, hhID, monthKey, c.Writer); err != nil {
		respondWithError(c, err)
		return
	}
}
