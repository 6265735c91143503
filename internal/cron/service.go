package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/metrics"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
	// Only restricts a run to the named jobs; empty runs every job.
	Only []string
}

// Service runs one pass over the selected jobs, each under its own lease.
// Scheduling is left to whatever invokes the worker.
type Service struct {
	logg    *logger.Logger
	jobs    []Job
	locker  Locker
	metrics *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	jobs, err := params.Registry.Select(params.Only...)
	if err != nil {
		return nil, err
	}
	return &Service{
		logg:    params.Logger,
		jobs:    jobs,
		locker:  params.Locker,
		metrics: params.Metrics,
	}, nil
}

// RunOnce runs every selected job once. A failing job does not stop the
// others; all failures come back combined.
func (s *Service) RunOnce(ctx context.Context) error {
	s.logg.Info(ctx, "cron cycle starting")
	var errs error
	for _, job := range s.jobs {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, s.runJob(ctx, job))
	}
	if errs != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failed_jobs", len(multierr.Errors(errs))), "cron cycle finished with failures")
		return errs
	}
	s.logg.Info(ctx, "cron cycle complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	lease, ok, err := s.locker.Lease(jobCtx, name)
	if err != nil {
		s.metrics.IncFailure(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	if !ok {
		s.logg.Info(jobCtx, "job is running on another worker; skipped")
		s.metrics.IncSkipped(name)
		return nil
	}
	defer func() {
		relErr := lease.Release(jobCtx)
		switch {
		case errors.Is(relErr, ErrLeaseExpired):
			s.logg.Warn(jobCtx, "job outlived its lease")
		case relErr != nil:
			s.logg.Error(jobCtx, "release cron lease", relErr)
		}
	}()

	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(name, duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(name)
	return nil
}
