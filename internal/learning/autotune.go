package learning

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"newslens/internal/cache"
	"newslens/internal/logger"
)

// MetricsTracker accumulates per-source operational outcomes the tuner
// reads: scrape results, cache decisions, and downstream acceptance.
type MetricsTracker struct {
	mu      sync.Mutex
	sources map[string]*sourceMetrics
}

type sourceMetrics struct {
	scrapeOK, scrapeFail   int
	cacheFresh, cacheStale int // fresh = content unchanged on revisit
	accepted, rejected     int // quality-gate outcomes
}

// NewMetricsTracker builds an empty tracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{sources: make(map[string]*sourceMetrics)}
}

func (m *MetricsTracker) source(id string) *sourceMetrics {
	s, ok := m.sources[id]
	if !ok {
		s = &sourceMetrics{}
		m.sources[id] = s
	}
	return s
}

// RecordScrape notes one scrape outcome.
func (m *MetricsTracker) RecordScrape(sourceID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.source(sourceID)
	if ok {
		s.scrapeOK++
	} else {
		s.scrapeFail++
	}
}

// RecordCacheRevisit notes whether a revisit found changed content.
func (m *MetricsTracker) RecordCacheRevisit(sourceID string, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.source(sourceID)
	if changed {
		s.cacheStale++
	} else {
		s.cacheFresh++
	}
}

// RecordAcceptance notes a quality-gate decision.
func (m *MetricsTracker) RecordAcceptance(sourceID string, accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.source(sourceID)
	if accepted {
		s.accepted++
	} else {
		s.rejected++
	}
}

// snapshotAndReset returns the counters and clears them for the next
// tuning window.
func (m *MetricsTracker) snapshotAndReset() map[string]sourceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]sourceMetrics, len(m.sources))
	for id, s := range m.sources {
		out[id] = *s
	}
	m.sources = make(map[string]*sourceMetrics)
	return out
}

// Tuning thresholds. A source whose content rarely changes between
// revisits earns a longer TTL; one that changes on nearly every revisit
// earns a shorter one.
const (
	minRevisitSample = 10
	freshRateLong    = 0.85
	freshRateShort   = 0.30
	ttlStepUp        = 1.25
	ttlStepDown      = 0.75

	minAcceptSample = 20
)

// Thresholds is the tunable detection parameter set the tuner adjusts
// in shadow or active mode.
type Thresholds struct {
	QualityFloor    float64 // minimum quality score to pass the gate
	DedupSimilarity float64 // near-duplicate threshold
}

// DefaultThresholds is the starting point before any tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{QualityFloor: 40, DedupSimilarity: 0.85}
}

// AutoTuner converts windowed metrics into parameter updates.
type AutoTuner struct {
	tracker    *MetricsTracker
	cache      *cache.SmartCache
	mode       Mode
	mu         sync.Mutex
	thresholds Thresholds
	ttlMuls    map[string]float64
	log        zerolog.Logger
}

// NewAutoTuner builds a tuner. cache may be nil (thresholds only).
func NewAutoTuner(tracker *MetricsTracker, sc *cache.SmartCache, mode Mode) *AutoTuner {
	return &AutoTuner{
		tracker:    tracker,
		cache:      sc,
		mode:       mode,
		thresholds: DefaultThresholds(),
		ttlMuls:    make(map[string]float64),
		log:        logger.With("autotune"),
	}
}

// SetMode switches the tuner's mode.
func (t *AutoTuner) SetMode(mode Mode) {
	t.mu.Lock()
	t.mode = mode
	t.mu.Unlock()
}

// Thresholds returns the current tuned parameter set.
func (t *AutoTuner) Thresholds() Thresholds {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.thresholds
}

// TTLMultiplier reports the last multiplier computed for a source.
func (t *AutoTuner) TTLMultiplier(sourceID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.ttlMuls[sourceID]; ok {
		return m
	}
	return 1.0
}

// Cycle runs one tuning pass over the window's metrics. All updates are
// computed first and applied together; in shadow mode they are only
// logged.
func (t *AutoTuner) Cycle(ctx context.Context) {
	window := t.tracker.snapshotAndReset()

	t.mu.Lock()
	mode := t.mode
	newMuls := make(map[string]float64)
	var totalAccepted, totalRejected int
	for id, m := range window {
		totalAccepted += m.accepted
		totalRejected += m.rejected
		revisits := m.cacheFresh + m.cacheStale
		if revisits < minRevisitSample {
			continue
		}
		freshRate := float64(m.cacheFresh) / float64(revisits)
		cur := t.ttlMuls[id]
		if cur == 0 {
			cur = 1.0
		}
		switch {
		case freshRate >= freshRateLong:
			newMuls[id] = cur * ttlStepUp
		case freshRate <= freshRateShort:
			newMuls[id] = cur * ttlStepDown
		}
	}

	thresholds := t.thresholds
	if totalAccepted+totalRejected >= minAcceptSample {
		acceptRate := float64(totalAccepted) / float64(totalAccepted+totalRejected)
		// A gate rejecting almost everything is mis-set; one passing
		// everything is not gating. Nudge the floor toward a 70-95%
		// acceptance band.
		switch {
		case acceptRate < 0.70 && thresholds.QualityFloor > 25:
			thresholds.QualityFloor -= 2
		case acceptRate > 0.95 && thresholds.QualityFloor < 60:
			thresholds.QualityFloor += 2
		}
	}
	t.mu.Unlock()

	if mode == ModeOff {
		return
	}
	if mode == ModeShadow {
		for id, mul := range newMuls {
			t.log.Info().Str("source", id).Float64("ttl_multiplier", mul).Msg("shadow mode: ttl multiplier computed")
		}
		return
	}

	t.mu.Lock()
	for id, mul := range newMuls {
		t.ttlMuls[id] = mul
	}
	t.thresholds = thresholds
	t.mu.Unlock()

	if t.cache != nil {
		for id, mul := range newMuls {
			if err := t.cache.SetTTLMultiplier(ctx, id, mul); err != nil {
				t.log.Warn().Err(err).Str("source", id).Msg("ttl multiplier update failed")
			}
		}
	}
}
