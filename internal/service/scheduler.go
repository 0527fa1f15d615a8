package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler accepts standard five field specs as well as descriptors such
// as @daily or @every 1h.
func NewScheduler(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		ctx: ctx,
	}
}

func (s *Scheduler) Add(spec string, task Task) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(task)); err != nil {
		return fmt.Errorf("invalid schedule %q for %s, %w", spec, task.Name(), err)
	}

	zap.L().Debug("Task scheduled", zap.String("task", task.Name()), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(task Task) func() {
	var running atomic.Bool

	return func() {
		// skip a tick if the previous run is still going
		if !running.CompareAndSwap(false, true) {
			zap.L().Warn("Task still running, skipping", zap.String("task", task.Name()))
			return
		}
		defer running.Store(false)

		start := time.Now()
		if err := task.Run(s.ctx); err != nil {
			zap.L().Error("Task failed", zap.String("task", task.Name()), zap.Error(err))
			return
		}

		zap.L().Debug("Task finished", zap.String("task", task.Name()), zap.Duration("took", time.Since(start)))
	}
}
