package jobs

import (
	"bitwise74/account-api/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxErrorLength = 1024

type QueueOpts struct {
	Workers      int
	BatchSize    int
	PollInterval time.Duration
	// Lease is how long a claimed job stays invisible to other pollers. It
	// also bounds a single execution.
	Lease   time.Duration
	Backoff func(attempt int) time.Duration
}

// Queue polls the outbox table, claims due jobs and feeds them to a fixed
// pool of workers. Several queues may poll the same table; a claim is a
// conditional update so each delivery goes to exactly one of them.
type Queue struct {
	db      *gorm.DB
	exec    Executor
	opts    QueueOpts
	jobs    chan *model.Job
	running atomic.Int32
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewQueue initializes a new job queue. Zero options fall back to sane
// defaults.
func NewQueue(db *gorm.DB, exec Executor, opts QueueOpts) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff
	}

	zap.L().Debug("Initializing job queue",
		zap.Int("workers", opts.Workers),
		zap.Int("batch_size", opts.BatchSize),
		zap.Duration("poll_interval", opts.PollInterval))

	return &Queue{
		db:   db,
		exec: exec,
		opts: opts,
		jobs: make(chan *model.Job, opts.BatchSize),
		now:  time.Now,
	}
}

// DefaultBackoff doubles from 5 seconds and caps at 10 minutes.
func DefaultBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := 5 * time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= 10*time.Minute {
			return 10 * time.Minute
		}
	}

	return d
}

// Start launches the poller and the worker pool. Polling stops when ctx is
// done, Wait returns once the jobs already handed to workers are finished.
func (q *Queue) Start(ctx context.Context) {
	for range q.opts.Workers {
		q.wg.Add(1)
		go q.worker()
	}

	q.wg.Add(1)
	go q.poll(ctx)
}

func (q *Queue) Wait() {
	q.wg.Wait()
}

// Running returns the number of jobs handed to workers and not yet finished.
func (q *Queue) Running() int32 {
	return q.running.Load()
}

func (q *Queue) poll(ctx context.Context) {
	defer q.wg.Done()
	defer close(q.jobs)

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		q.fill(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (q *Queue) fill(ctx context.Context) {
	claimed, err := q.Claim(ctx, q.opts.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			zap.L().Error("Failed to claim jobs", zap.Error(err))
		}
		return
	}

	for _, job := range claimed {
		// Unsent claims are picked up again once their lease runs out
		if err := q.Enqueue(ctx, job); err != nil {
			return
		}
	}
}

// Enqueue hands a claimed job to the worker pool, blocking while all
// workers are busy.
func (q *Queue) Enqueue(ctx context.Context, job *model.Job) error {
	select {
	case q.jobs <- job:
		q.running.Add(1)
		zap.L().Debug("Job handed to workers", zap.Int32("running", q.running.Load()), zap.String("job_id", job.ID))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for job := range q.jobs {
		q.process(job)
		q.running.Add(-1)
	}
}

// RunOnce claims one batch and processes it on the calling goroutine. It
// returns how many jobs were claimed.
func (q *Queue) RunOnce(ctx context.Context) (int, error) {
	claimed, err := q.Claim(ctx, q.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, job := range claimed {
		q.process(job)
	}

	return len(claimed), nil
}

// Claim leases up to limit due jobs. Pending jobs whose RunAt has passed and
// running jobs whose lease expired are both eligible.
func (q *Queue) Claim(ctx context.Context, limit int) ([]*model.Job, error) {
	now := q.now().UTC()

	var candidates []*model.Job
	err := q.db.WithContext(ctx).
		Where("(status = ? AND run_at <= ?) OR (status = ? AND locked_until < ?)",
			model.JobPending, now, model.JobRunning, now).
		Order("run_at").
		Limit(limit).
		Find(&candidates).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs, %w", err)
	}

	claimed := make([]*model.Job, 0, len(candidates))
	for _, job := range candidates {
		lease := now.Add(q.opts.Lease)

		// attempts is bumped by the claim so a second poller racing on the
		// same row no longer matches
		res := q.db.WithContext(ctx).
			Model(&model.Job{}).
			Where("id = ? AND status = ? AND attempts = ?", job.ID, job.Status, job.Attempts).
			Updates(map[string]any{
				"status":       model.JobRunning,
				"locked_until": lease,
				"attempts":     gorm.Expr("attempts + 1"),
			})
		if res.Error != nil {
			return claimed, fmt.Errorf("failed to claim job %s, %w", job.ID, res.Error)
		}

		if res.RowsAffected != 1 {
			continue
		}

		job.Status = model.JobRunning
		job.LockedUntil = &lease
		job.Attempts++
		claimed = append(claimed, job)
	}

	return claimed, nil
}

func (q *Queue) process(job *model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.opts.Lease)
	defer cancel()

	log := zap.L().With(zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Int("attempt", job.Attempts))

	if err := q.exec.Execute(ctx, job); err != nil {
		status, ferr := q.fail(job, err)
		if ferr != nil {
			log.Error("Failed to record job failure", zap.Error(ferr), zap.NamedError("cause", err))
			return
		}

		if status == model.JobDead {
			log.Error("Job failed permanently", zap.Error(err))
		} else {
			log.Warn("Job failed, retrying later", zap.Error(err))
		}
		return
	}

	if err := q.complete(job); err != nil {
		log.Error("Failed to mark job as done", zap.Error(err))
		return
	}

	log.Debug("Job finished successfully")
}

func (q *Queue) complete(job *model.Job) error {
	return q.settle(job, map[string]any{
		"status":       model.JobDone,
		"locked_until": nil,
		"last_error":   "",
	})
}

func (q *Queue) fail(job *model.Job, cause error) (model.JobStatus, error) {
	msg := truncate(cause.Error(), maxErrorLength)

	updates := map[string]any{
		"locked_until": nil,
		"last_error":   msg,
	}

	status := model.JobPending
	if errors.Is(cause, ErrPermanent) || job.Attempts >= job.MaxAttempts {
		status = model.JobDead
	} else {
		updates["run_at"] = q.now().UTC().Add(q.opts.Backoff(job.Attempts))
	}
	updates["status"] = status

	return status, q.settle(job, updates)
}

// settle writes the outcome only if this worker still owns the claim.
func (q *Queue) settle(job *model.Job, updates map[string]any) error {
	res := q.db.
		Model(&model.Job{}).
		Where("id = ? AND status = ? AND attempts = ?", job.ID, model.JobRunning, job.Attempts).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected != 1 {
		return ErrNotClaimed
	}

	return nil
}

// PurgeFinished deletes done jobs last touched before the cutoff. Dead jobs
// are kept for inspection.
func PurgeFinished(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.JobDone, before).
		Delete(&model.Job{})

	return res.RowsAffected, res.Error
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune,
// since postgres rejects invalid UTF-8 in text columns.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return strings.ToValidUTF8(s[:n], "")
}
