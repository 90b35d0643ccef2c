package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/models"
	"homeledger/internal/services"
)

// maxStatementSize caps uploaded statement files at 5 MiB.
const maxStatementSize = 5 << 20

// ImportHandler handles bank statement import requests.
type ImportHandler struct {
	importService services.ImportServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// AcceptCandidateRequest represents the request payload for accepting
// an import candidate. Fields override the extractor's proposal.
type AcceptCandidateRequest struct {
	SplitCategory string `json:"split_category" binding:"omitempty,split_category"`
	SplitMemberID *uint  `json:"split_member_id"`
	ExpenseTypeID *uint  `json:"expense_type_id"`
}

// UploadStatement uploads a bank statement for extraction
// @Summary     Upload a statement
// @Description Upload a CSV bank statement, extraction runs in the background
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       file formData file true "Statement file"
// @Success     202 {object} models.ImportTask "Task accepted"
// @Failure     400 {object} ErrorResponse "Invalid file"
// @Router      /households/{household_id}/imports [post]
func (h *ImportHandler) UploadStatement(c *gin.Context) {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "statement file is required"))
		return
	}
	if fileHeader.Size > maxStatementSize {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "statement file too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxStatementSize))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	task, err := h.importService.EnqueueImport(userID, hhID, fileHeader.Filename, payload)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"task": task})
}

// GetImportTask returns a task's status
// @Summary     Get import task
// @Description Poll the status of a statement import task
// @Tags        imports
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       task_id path string true "Task ID"
// @Success     200 {object} models.ImportTask "Task"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{household_id}/imports/{task_id} [get]
func (h *ImportHandler) GetImportTask(c *gin.Context) {
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

	task, err := h.importService.GetTask(userID, hhID, c.Param("task_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// ListImportCandidates returns a ready task's candidates
// @Summary     List import candidates
// @Description List the extracted transaction candidates of a ready task
// @Tags        imports
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       task_id path string true "Task ID"
// @Success     200 {array} models.ImportCandidate "Candidates"
// @Failure     409 {object} ErrorResponse "Task not ready"
// @Router      /households/{household_id}/imports/{task_id}/candidates [get]
func (h *ImportHandler) ListImportCandidates(c *gin.Context) {
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

	candidates, err := h.importService.ListCandidates(userID, hhID, c.Param("task_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// AcceptImportCandidate converts a candidate into a transaction
// @Summary     Accept an import candidate
// @Description Create a real transaction from an extracted candidate
// @Tags        imports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       household_id path int true "Household ID"
// @Param       candidate_id path int true "Candidate ID"
// @Param       request body AcceptCandidateRequest true "Overrides"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     409 {object} ErrorResponse "Candidate already accepted"
// @Router      /households/{household_id}/imports/candidates/{candidate_id}/accept [post]
func (h *ImportHandler) AcceptImportCandidate(c *gin.Context) {
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
	candidateID, err := parsePathID(c, "candidate_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AcceptCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.importService.AcceptCandidate(
		c.Request.Context(), userID, hhID, candidateID,
		models.SplitCategory(req.SplitCategory), req.SplitMemberID, req.ExpenseTypeID,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}
