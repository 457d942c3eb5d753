// Package scheduler drives the calendar-triggered treasury runs from cron
// expressions. One invocation per trigger time; overlapping runs of the same
// job are skipped.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages the cron-driven jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler using standard 5-field cron expressions.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger.With(zap.String("component", "scheduler")),
	}
}

// Add registers a job under the given cron spec.
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("running job", zap.String("job", job.Name()))

		if err := job.Run(context.Background()); err != nil {
			s.logger.Error("job failed",
				zap.String("job", job.Name()),
				zap.Error(err))
			return
		}
		s.logger.Info("job completed", zap.String("job", job.Name()))
	})
	if err != nil {
		return err
	}

	s.logger.Info("job registered",
		zap.String("job", job.Name()),
		zap.String("spec", spec))
	return nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name returns the job name.
func (j JobFunc) Name() string { return j.JobName }

// Run executes the wrapped function.
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
