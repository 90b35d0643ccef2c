package importer

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"homeledger/internal/logger"
	"homeledger/internal/models"
)

type job struct {
	taskID   string
	filename string
	payload  []byte
}

// Pool runs statement extraction on a bounded set of background
// workers. Tasks move pending -> processing -> ready or failed.
type Pool struct {
	db        *gorm.DB
	extractor Extractor
	jobs      chan job
	workers   int
	wg        sync.WaitGroup
}

// NewPool creates a worker pool with the given concurrency.
func NewPool(db *gorm.DB, extractor Extractor, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		db:        db,
		extractor: extractor,
		jobs:      make(chan job, 64),
		workers:   workers,
	}
}

// Start launches the workers. They drain the queue until ctx is
// cancelled, then wg lets Wait observe shutdown.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-p.jobs:
					p.process(j)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Enqueue queues a task for extraction. Returns false when the queue
// is full; the caller should mark the task failed rather than block a
// request handler.
func (p *Pool) Enqueue(taskID, filename string, payload []byte) bool {
	select {
	case p.jobs <- job{taskID: taskID, filename: filename, payload: payload}:
		return true
	default:
		return false
	}
}

func (p *Pool) process(j job) {
	log := logger.Get()

	var task models.ImportTask
	if err := p.db.First(&task, "id = ?", j.taskID).Error; err != nil {
		log.Errorw("import task vanished before processing", "task_id", j.taskID, "error", err)
		return
	}
	if err := p.db.Model(&task).Update("status", models.ImportStatusProcessing).Error; err != nil {
		log.Errorw("failed to mark import task processing", "task_id", j.taskID, "error", err)
		return
	}

	candidates, err := p.extractor.Extract(j.filename, j.payload)
	if err != nil {
		p.fail(&task, err.Error())
		return
	}

	// Pull the household's recent transactions once for duplicate checks.
	var existing []models.Transaction
	if err := p.db.Where("household_id = ?", task.HouseholdID).Find(&existing).Error; err != nil {
		p.fail(&task, "duplicate check failed")
		return
	}

	rows := make([]models.ImportCandidate, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, models.ImportCandidate{
			TaskID:          task.ID,
			Date:            c.Date,
			Merchant:        c.Merchant,
			Amount:          c.Amount,
			Currency:        c.Currency,
			Confidence:      c.Confidence,
			ProposedSplit:   models.SplitShared,
			LikelyDuplicate: IsLikelyDuplicate(c, existing),
		})
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&task).Update("status", models.ImportStatusReady).Error
	})
	if err != nil {
		p.fail(&task, "failed to store candidates")
		return
	}
	log.Infow("import task ready",
		"task_id", task.ID,
		"household_id", task.HouseholdID,
		"candidates", len(rows),
	)
}

func (p *Pool) fail(task *models.ImportTask, reason string) {
	logger.Get().Warnw("import task failed", "task_id", task.ID, "reason", reason)
	if err := p.db.Model(task).Updates(map[string]interface{}{
		"status": models.ImportStatusFailed,
		"error":  reason,
	}).Error; err != nil {
		logger.Get().Errorw("failed to mark import task failed", "task_id", task.ID, "error", err)
	}
}
