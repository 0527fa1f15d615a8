package jobs

import (
	"bitwise74/account-api/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dispatcher records a job for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload) error
}

// OutboxDispatcher writes jobs to the outbox table through db. When db is a
// transaction handle the job becomes visible only if that transaction
// commits.
type OutboxDispatcher struct {
	db          *gorm.DB
	maxAttempts int
}

func NewOutboxDispatcher(db *gorm.DB, maxAttempts int) *OutboxDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &OutboxDispatcher{db: db, maxAttempts: maxAttempts}
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, p Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload, %w", p.Kind(), err)
	}

	job := &model.Job{
		ID:          uuid.NewString(),
		Kind:        p.Kind(),
		Payload:     raw,
		Status:      model.JobPending,
		MaxAttempts: d.maxAttempts,
		RunAt:       time.Now().UTC(),
	}

	if err := d.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s job, %w", p.Kind(), err)
	}

	zap.L().Debug("Job enqueued", zap.String("job_id", job.ID), zap.String("kind", job.Kind))
	return nil
}
