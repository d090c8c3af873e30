// Package learning closes the quality loop: it aggregates feedback
// signals from every layer, adjusts source reputation in small bounded
// steps, and tunes cache and threshold parameters from observed
// outcomes.
package learning

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/logger"
	"newslens/internal/metrics"
	"newslens/internal/validate"
)

// Adjustment parameters.
const (
	DefaultBufferSize = 10
	maxAdjustStep     = 0.02 // reputation fraction per flush

	// Overall source score weights.
	usageWeight     = 0.4
	relevanceWeight = 0.3
	accuracyWeight  = 0.3
)

// Mode gates whether computed adjustments are applied.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeShadow Mode = "shadow" // compute and log, never apply
	ModeActive Mode = "active"
)

// Handler receives every accepted signal. Handler errors are logged and
// swallowed; a broken subscriber never blocks the loop.
type Handler func(core.FeedbackSignal) error

// SourceRates is the per-source aggregate view.
type SourceRates struct {
	SourceID      string  `json:"source_id"`
	UsageRate     float64 `json:"usage_rate"`
	RelevanceRate float64 `json:"relevance_rate"`
	AccuracyRate  float64 `json:"accuracy_rate"`
	Overall       float64 `json:"overall"`
	SignalCount   int     `json:"signal_count"`
}

// sourceTally accumulates raw counts per source.
type sourceTally struct {
	used, discarded      int
	relevant, irrelevant int
	accurate, inaccurate int
	pending              []core.FeedbackSignal // buffered until flush
	signals              []core.FeedbackSignal // retained history
}

// FeedbackLoop aggregates signals per source and triggers bounded
// reputation adjustments once a source's buffer fills.
type FeedbackLoop struct {
	mu         sync.Mutex
	tallies    map[string]*sourceTally
	handlers   []Handler
	tracker    *validate.Tracker
	mode       Mode
	bufferSize int
	retention  time.Duration
	metrics    *metrics.Registry
	log        zerolog.Logger
}

// NewFeedbackLoop builds a loop bound to the reputation tracker.
func NewFeedbackLoop(tracker *validate.Tracker, mode Mode, bufferSize int, retention time.Duration, reg *metrics.Registry) *FeedbackLoop {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &FeedbackLoop{
		tallies:    make(map[string]*sourceTally),
		tracker:    tracker,
		mode:       mode,
		bufferSize: bufferSize,
		retention:  retention,
		metrics:    reg,
		log:        logger.With("learning"),
	}
}

// SetMode switches the loop's mode at runtime.
func (l *FeedbackLoop) SetMode(mode Mode) {
	l.mu.Lock()
	l.mode = mode
	l.mu.Unlock()
}

// Register adds a signal handler.
func (l *FeedbackLoop) Register(h Handler) {
	l.mu.Lock()
	l.handlers = append(l.handlers, h)
	l.mu.Unlock()
}

// Submit accepts one signal, updates the source tally, fans out to
// handlers, and flushes the source's buffer when it reaches the
// configured size.
func (l *FeedbackLoop) Submit(signal core.FeedbackSignal) {
	if signal.ID == "" {
		signal.ID = uuid.NewString()
	}
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = time.Now()
	}
	l.metrics.FeedbackSignal(string(signal.Type))

	l.mu.Lock()
	if l.mode == ModeOff {
		l.mu.Unlock()
		return
	}
	t := l.tally(signal.SourceID)
	tallySignal(t, signal)
	t.signals = append(t.signals, signal)
	t.pending = append(t.pending, signal)
	var flush []core.FeedbackSignal
	if len(t.pending) >= l.bufferSize {
		flush = t.pending
		t.pending = nil
	}
	handlers := make([]Handler, len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, h := range handlers {
		if err := h(signal); err != nil {
			l.metrics.HandlerFailure()
			l.log.Warn().Err(err).Str("signal", string(signal.Type)).Msg("feedback handler failed")
		}
	}
	if flush != nil {
		l.flush(signal.SourceID, flush)
	}
}

// flush converts a full buffer into a reputation adjustment:
// (positive_ratio - 0.5) * 2 * 0.02, capped at the max step.
func (l *FeedbackLoop) flush(sourceID string, buffered []core.FeedbackSignal) {
	if sourceID == "" {
		return
	}
	positive := 0
	for _, s := range buffered {
		if s.Type.Positive() {
			positive++
		}
	}
	ratio := float64(positive) / float64(len(buffered))
	delta := (ratio - 0.5) * 2 * maxAdjustStep
	if delta > maxAdjustStep {
		delta = maxAdjustStep
	} else if delta < -maxAdjustStep {
		delta = -maxAdjustStep
	}

	l.mu.Lock()
	mode := l.mode
	l.mu.Unlock()

	if mode == ModeShadow {
		l.log.Info().
			Str("source", sourceID).
			Float64("positive_ratio", ratio).
			Float64("delta", delta).
			Msg("shadow mode: reputation adjustment computed, not applied")
		return
	}
	if l.tracker != nil && delta != 0 {
		rep := l.tracker.Adjust(sourceID, delta)
		l.log.Info().
			Str("source", sourceID).
			Float64("delta", delta).
			Float64("score", rep.ReputationScore).
			Msg("reputation adjusted from feedback")
	}
}

// Rates returns the aggregate rates for one source.
func (l *FeedbackLoop) Rates(sourceID string) SourceRates {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tallies[sourceID]
	if !ok {
		return SourceRates{SourceID: sourceID}
	}
	r := SourceRates{SourceID: sourceID, SignalCount: len(t.signals)}
	r.UsageRate = rate(t.used, t.discarded)
	r.RelevanceRate = rate(t.relevant, t.irrelevant)
	r.AccuracyRate = rate(t.accurate, t.inaccurate)
	r.Overall = usageWeight*r.UsageRate + relevanceWeight*r.RelevanceRate + accuracyWeight*r.AccuracyRate
	return r
}

// Sweep drops retained signals older than the retention window and
// returns how many were removed.
func (l *FeedbackLoop) Sweep(now time.Time) int {
	cutoff := now.Add(-l.retention)
	removed := 0
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tallies {
		kept := t.signals[:0]
		for _, s := range t.signals {
			if s.CreatedAt.After(cutoff) {
				kept = append(kept, s)
			} else {
				removed++
			}
		}
		t.signals = kept
	}
	return removed
}

func (l *FeedbackLoop) tally(sourceID string) *sourceTally {
	t, ok := l.tallies[sourceID]
	if !ok {
		t = &sourceTally{}
		l.tallies[sourceID] = t
	}
	return t
}

func tallySignal(t *sourceTally, s core.FeedbackSignal) {
	switch s.Type {
	case core.FeedbackArticleUsed, core.FeedbackInsightActioned:
		t.used++
	case core.FeedbackArticleDiscarded, core.FeedbackInsightIgnored:
		t.discarded++
	case core.FeedbackRelevant, core.FeedbackCategoryCorrect:
		t.relevant++
	case core.FeedbackIrrelevant, core.FeedbackCategoryWrong:
		t.irrelevant++
	case core.FeedbackClaimConfirmed, core.FeedbackForecastAccurate:
		t.accurate++
	case core.FeedbackClaimContradicted, core.FeedbackForecastMissed:
		t.inaccurate++
	}
}

func rate(pos, neg int) float64 {
	if pos+neg == 0 {
		return 0.5 // no evidence reads as neutral
	}
	return float64(pos) / float64(pos+neg)
}
