package jobs

import (
	"bitwise74/account-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqForwarder is an Executor that moves claimed outbox rows onto a Redis
// backed asynq queue. From there asynq owns retries and the outbox row is
// done as soon as the task is accepted.
type AsynqForwarder struct {
	client   *asynq.Client
	maxRetry int
}

// NewAsynqForwarder caps every task at maxAttempts runs in total. asynq counts
// retries after the first run, hence the minus one.
func NewAsynqForwarder(client *asynq.Client, maxAttempts int) *AsynqForwarder {
	return &AsynqForwarder{client: client, maxRetry: retriesFor(maxAttempts)}
}

func retriesFor(maxAttempts int) int {
	return max(maxAttempts-1, 0)
}

func (f *AsynqForwarder) Execute(ctx context.Context, job *model.Job) error {
	// The outbox id doubles as the task id so a redelivered row is not
	// enqueued twice
	info, err := f.client.EnqueueContext(ctx, NewTask(job), asynq.TaskID(job.ID), asynq.MaxRetry(f.maxRetry))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		zap.L().Debug("Job already forwarded", zap.String("job_id", job.ID))
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to forward job to asynq, %w", err)
	}

	zap.L().Debug("Job forwarded to asynq", zap.String("job_id", job.ID), zap.String("queue", info.Queue))
	return nil
}

func NewTask(job *model.Job) *asynq.Task {
	return asynq.NewTask(job.Kind, job.Payload)
}

// NewServeMux routes asynq tasks to the handlers in reg. Permanent failures
// skip asynq's retry.
func NewServeMux(reg *Registry) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	for _, kind := range reg.Kinds() {
		mux.HandleFunc(kind, func(ctx context.Context, t *asynq.Task) error {
			err := reg.Run(ctx, t.Type(), t.Payload())
			if errors.Is(err, ErrPermanent) {
				return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
			}

			return err
		})
	}

	return mux
}

func NewAsynqServer(redis asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Logger:      zap.S(),
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return DefaultBackoff(n + 1)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			zap.L().Error("Asynq task failed", zap.String("kind", t.Type()), zap.Error(err))
		}),
	})
}
