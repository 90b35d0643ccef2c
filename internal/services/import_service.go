package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "homeledger/internal/errors"
	"homeledger/internal/importer"
	"homeledger/internal/models"
)

type importService struct {
	db           *gorm.DB
	households   HouseholdServicer
	transactions TransactionServicer
	pool         *importer.Pool
}

// NewImportService creates a new ImportServicer backed by the given
// extraction worker pool.
func NewImportService(db *gorm.DB, households HouseholdServicer, transactions TransactionServicer, pool *importer.Pool) ImportServicer {
	return &importService{
		db:           db,
		households:   households,
		transactions: transactions,
		pool:         pool,
	}
}

// EnqueueImport stores a pending task and hands the payload to the
// worker pool. The caller polls GetTask for completion.
func (s *importService) EnqueueImport(userID, householdID uint, filename string, payload []byte) (*models.ImportTask, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "statement file is empty")
	}

	task := &models.ImportTask{
		ID:          uuid.New().String(),
		HouseholdID: householdID,
		UploaderID:  userID,
		Filename:    filename,
		Status:      models.ImportStatusPending,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !s.pool.Enqueue(task.ID, filename, payload) {
		s.db.Model(task).Updates(map[string]interface{}{
			"status": models.ImportStatusFailed,
			"error":  "import queue is full, try again later",
		})
		task.Status = models.ImportStatusFailed
		task.Error = "import queue is full, try again later"
	}
	return task, nil
}

// GetTask returns a task's current status.
func (s *importService) GetTask(userID, householdID uint, taskID string) (*models.ImportTask, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var task models.ImportTask
	err := s.db.Where("id = ? AND household_id = ?", taskID, householdID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrImportTaskNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &task, nil
}

// ListCandidates returns the extracted candidates of a ready task.
func (s *importService) ListCandidates(userID, householdID uint, taskID string) ([]models.ImportCandidate, error) {
	task, err := s.GetTask(userID, householdID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.ImportStatusReady {
		return nil, apperrors.ErrImportNotReady
	}

	var candidates []models.ImportCandidate
	if err := s.db.Where("task_id = ?", task.ID).Order("date, id").Find(&candidates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return candidates, nil
}

// AcceptCandidate turns a candidate into a real transaction. Creation
// goes through the transaction service so normalization and the
// settled-month lock apply the same as for manual entry. The accepting
// user becomes the payer.
func (s *importService) AcceptCandidate(ctx context.Context, userID, householdID uint, candidateID uint, split models.SplitCategory, splitMemberID, expenseTypeID *uint) (*models.Transaction, error) {
	if err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var candidate models.ImportCandidate
	err := s.db.
		Joins("JOIN import_tasks ON import_tasks.id = import_candidates.task_id").
		Where("import_candidates.id = ? AND import_tasks.household_id = ?", candidateID, householdID).
		First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCandidateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if candidate.AcceptedTransactionID != nil {
		return nil, apperrors.ErrCandidateAccepted
	}

	if split == "" {
		split = candidate.ProposedSplit
	}
	if expenseTypeID == nil {
		expenseTypeID = candidate.ProposedExpenseTypeID
	}

	tx, err := s.transactions.CreateTransaction(ctx, userID, householdID, TransactionInput{
		Date:          candidate.Date,
		Merchant:      candidate.Merchant,
		Amount:        candidate.Amount,
		Currency:      candidate.Currency,
		PaidByID:      userID,
		SplitCategory: split,
		SplitMemberID: splitMemberID,
		ExpenseTypeID: expenseTypeID,
		Notes:         "imported from " + candidate.TaskID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&candidate).Update("accepted_transaction_id", tx.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, nil
}
