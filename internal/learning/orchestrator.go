package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"newslens/internal/cache"
	"newslens/internal/config"
	"newslens/internal/logger"
	"newslens/internal/metrics"
	"newslens/internal/validate"
)

// Default cycle cadence when the config leaves the specs empty.
const (
	defaultHourlySpec = "@hourly"
	defaultDailySpec  = "@daily"
	defaultWeeklySpec = "@weekly"
)

// Orchestrator owns the learning subsystem's lifecycle: it wires the
// feedback loop and auto-tuner to a cron schedule and runs the
// retention sweep.
type Orchestrator struct {
	Feedback *FeedbackLoop
	Metrics  *MetricsTracker
	Tuner    *AutoTuner

	cfg  config.LearningConfig
	cron *cron.Cron
	log  zerolog.Logger
}

// NewOrchestrator builds the learning subsystem from config. cache may
// be nil when no Redis-backed cache is running.
func NewOrchestrator(cfg config.LearningConfig, tracker *validate.Tracker, sc *cache.SmartCache, reg *metrics.Registry) *Orchestrator {
	mode := Mode(cfg.Mode)
	switch mode {
	case ModeOff, ModeShadow, ModeActive:
	default:
		mode = ModeShadow
	}
	mt := NewMetricsTracker()
	return &Orchestrator{
		Feedback: NewFeedbackLoop(tracker, mode, cfg.BufferSize, cfg.Retention, reg),
		Metrics:  mt,
		Tuner:    NewAutoTuner(mt, sc, mode),
		cfg:      cfg,
		log:      logger.With("learning"),
	}
}

// SetMode switches the whole subsystem's mode at once.
func (o *Orchestrator) SetMode(mode Mode) {
	o.Feedback.SetMode(mode)
	o.Tuner.SetMode(mode)
}

// Initialize registers the learning cycles and starts the scheduler:
// hourly tuning, a daily rate summary, and a weekly retention sweep.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.cron = cron.New()
	jobs := []struct {
		spec, fallback, name string
		run                  func()
	}{
		{o.cfg.HourlySpec, defaultHourlySpec, "tune", func() { o.Tuner.Cycle(ctx) }},
		{o.cfg.DailySpec, defaultDailySpec, "summary", o.logSummary},
		{o.cfg.WeeklySpec, defaultWeeklySpec, "sweep", o.sweep},
	}
	for _, j := range jobs {
		spec := j.spec
		if spec == "" {
			spec = j.fallback
		}
		if _, err := o.cron.AddFunc(spec, j.run); err != nil {
			return fmt.Errorf("learning %s cycle spec %q: %w", j.name, spec, err)
		}
	}
	o.cron.Start()
	o.log.Info().
		Str("mode", o.cfg.Mode).
		Str("hourly", o.cfg.HourlySpec).
		Msg("learning cycles scheduled")
	return nil
}

// Close stops the scheduler and waits for any running cycle.
func (o *Orchestrator) Close() {
	if o.cron == nil {
		return
	}
	<-o.cron.Stop().Done()
	o.cron = nil
}

func (o *Orchestrator) sweep() {
	removed := o.Feedback.Sweep(time.Now())
	if removed > 0 {
		o.log.Info().Int("removed", removed).Msg("feedback retention sweep")
	}
}

func (o *Orchestrator) logSummary() {
	o.Feedback.mu.Lock()
	ids := make([]string, 0, len(o.Feedback.tallies))
	for id := range o.Feedback.tallies {
		ids = append(ids, id)
	}
	o.Feedback.mu.Unlock()
	for _, id := range ids {
		r := o.Feedback.Rates(id)
		o.log.Info().
			Str("source", id).
			Float64("usage", r.UsageRate).
			Float64("relevance", r.RelevanceRate).
			Float64("accuracy", r.AccuracyRate).
			Float64("overall", r.Overall).
			Int("signals", r.SignalCount).
			Msg("source feedback summary")
	}
}
