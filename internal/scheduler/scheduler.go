// Package scheduler drives the periodic work: pipeline runs, rolling
// window sweeps and retention cleanups. Interval adaptivity lives in the
// cache layer (tuned TTLs decide whether a run actually refetches), so
// the cron cadence here can stay fixed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"newslens/internal/dedup"
	"newslens/internal/logger"
	"newslens/internal/pipeline"
	"newslens/internal/validate"
)

// DefaultRunSpec polls sources every fifteen minutes; the smart cache
// turns most polls into cheap revalidations.
const (
	DefaultRunSpec   = "@every 15m"
	DefaultSweepSpec = "@every 10m"
)

// Scheduler owns the cron loop. Jobs are registered before Start and
// keep running until Close.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.Mutex
	jobs map[string]func(context.Context)
}

// New builds an idle scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make(map[string]func(context.Context)),
		log:  logger.With("scheduler"),
	}
}

// Add registers a named job under a cron spec.
func (s *Scheduler) Add(spec, name string, job func(context.Context)) error {
	if job == nil {
		return errors.New("scheduler: nil job")
	}
	s.mu.Lock()
	if _, dup := s.jobs[name]; dup {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	s.jobs[name] = job
	s.mu.Unlock()

	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		job(context.Background())
		s.log.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("job finished")
	})
	if err != nil {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()
		return fmt.Errorf("scheduler: job %q spec %q: %w", name, spec, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job registered")
	return nil
}

// SchedulePipeline registers the periodic full run. Overlap is handled
// by the pipeline itself; an in-progress run makes the tick a no-op.
func (s *Scheduler) SchedulePipeline(spec string, p *pipeline.Pipeline) error {
	if spec == "" {
		spec = DefaultRunSpec
	}
	return s.Add(spec, "pipeline_run", func(ctx context.Context) {
		if _, err := p.Run(ctx, false); err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				s.log.Debug().Msg("run tick skipped, previous run still active")
				return
			}
			s.log.Error().Err(err).Msg("scheduled run failed")
		}
	})
}

// ScheduleSweeps registers the rolling-window maintenance: dedup index
// eviction and corroboration cache expiry.
func (s *Scheduler) ScheduleSweeps(spec string, d *dedup.Deduplicator, v *validate.Validator) error {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	return s.Add(spec, "window_sweep", func(context.Context) {
		now := time.Now()
		if d != nil {
			evicted := d.Sweep(now)
			if evicted > 0 {
				s.log.Debug().Int("evicted", evicted).Msg("dedup window swept")
			}
		}
		if v != nil {
			v.Sweep(now)
		}
	})
}

// Trigger runs a registered job immediately, outside its cron cadence.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	job(ctx)
	return nil
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		out = append(out, name)
	}
	return out
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs())).Msg("scheduler started")
}

// Close stops the loop and waits for running jobs to finish.
func (s *Scheduler) Close() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}
