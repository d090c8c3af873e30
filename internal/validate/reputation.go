package validate

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/logger"
	"newslens/internal/metrics"
)

const (
	confirmPerSource     = 0.02
	maxConfirmBoost      = 0.05
	firstReportBonus     = 0.01
	contradictPerSource  = 0.03
	maxContradictPenalty = 0.08

	autoDisableScore  = 0.40
	autoDisableMinObs = 20

	// EWMA factor folding per-article quality scores into the rolling
	// quality and reputation figures.
	qualityAlpha = 0.1

	historyCap = 500
)

// Tracker holds per-source reputation. Writes for one source are
// serialized behind that source's lock; reads load an immutable snapshot
// and never block writers.
type Tracker struct {
	mu      sync.Mutex
	sources map[string]*sourceState

	reg *metrics.Registry
	log zerolog.Logger
}

type sourceState struct {
	mu   sync.Mutex
	snap atomic.Pointer[core.SourceReputation]
}

// NewTracker builds an empty tracker. reg may be nil.
func NewTracker(reg *metrics.Registry) *Tracker {
	return &Tracker{
		sources: make(map[string]*sourceState),
		reg:     reg,
		log:     logger.With("reputation"),
	}
}

// Register seeds a source at its tier's base score. Re-registering an
// existing source is a no-op, so restarts do not reset learned standing.
func (t *Tracker) Register(sourceID string, tier core.SourceTier) {
	st := t.state(sourceID)
	if st.snap.Load() != nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.snap.Load() != nil {
		return
	}
	now := time.Now()
	rep := &core.SourceReputation{
		SourceID:        sourceID,
		Tier:            tier,
		ReputationScore: tier.BaseScore(),
		QualityScore:    tier.BaseScore(),
		LastUpdated:     now,
		History:         []core.ReputationPoint{{Timestamp: now, Score: tier.BaseScore()}},
	}
	st.snap.Store(rep)
	t.reg.SetReputation(sourceID, rep.ReputationScore)
}

func (t *Tracker) state(sourceID string) *sourceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.sources[sourceID]
	if !ok {
		st = &sourceState{}
		t.sources[sourceID] = st
	}
	return st
}

// ensure returns the state for a source, registering it as unknown tier
// when it has never been seen.
func (t *Tracker) ensure(sourceID string) *sourceState {
	st := t.state(sourceID)
	if st.snap.Load() == nil {
		t.Register(sourceID, core.TierUnknown)
	}
	return st
}

// Snapshot returns the current reputation for a source.
func (t *Tracker) Snapshot(sourceID string) (core.SourceReputation, bool) {
	t.mu.Lock()
	st, ok := t.sources[sourceID]
	t.mu.Unlock()
	if !ok {
		return core.SourceReputation{}, false
	}
	rep := st.snap.Load()
	if rep == nil {
		return core.SourceReputation{}, false
	}
	return *rep, true
}

// Credibility returns the reputation score, or the unknown-tier base for
// sources never seen before.
func (t *Tracker) Credibility(sourceID string) float64 {
	if rep, ok := t.Snapshot(sourceID); ok {
		return rep.ReputationScore
	}
	return core.TierUnknown.BaseScore()
}

// TierOf reports the registered tier; unknown for unseen sources.
func (t *Tracker) TierOf(sourceID string) core.SourceTier {
	if rep, ok := t.Snapshot(sourceID); ok {
		return rep.Tier
	}
	return core.TierUnknown
}

// Disabled reports whether the source has been auto-disabled.
func (t *Tracker) Disabled(sourceID string) bool {
	rep, ok := t.Snapshot(sourceID)
	return ok && rep.AutoDisabled
}

// All returns every tracked source sorted by id.
func (t *Tracker) All() []core.SourceReputation {
	t.mu.Lock()
	states := make(map[string]*sourceState, len(t.sources))
	for id, st := range t.sources {
		states[id] = st
	}
	t.mu.Unlock()

	out := make([]core.SourceReputation, 0, len(states))
	for _, st := range states {
		if rep := st.snap.Load(); rep != nil {
			out = append(out, *rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// RecordConfirmation raises a source's reputation after its claims were
// echoed by corroborators. The boost is min(0.02 per corroborator, 0.05)
// plus 0.01 when the source broke the story, capped at the tier maximum.
func (t *Tracker) RecordConfirmation(sourceID string, corroborators int, wasFirst bool) core.SourceReputation {
	return t.mutate(sourceID, func(rep *core.SourceReputation) {
		boost := confirmPerSource * float64(corroborators)
		if boost > maxConfirmBoost {
			boost = maxConfirmBoost
		}
		if wasFirst {
			boost += firstReportBonus
		}
		rep.ReputationScore += boost
		if max := rep.Tier.MaxScore(); rep.ReputationScore > max {
			rep.ReputationScore = max
		}
		rep.AcceptedCount++
	})
}

// RecordContradiction lowers a source's reputation after its claims were
// contradicted. The penalty is min(0.03 per contradictor, 0.08).
func (t *Tracker) RecordContradiction(sourceID string, contradictors int) core.SourceReputation {
	return t.mutate(sourceID, func(rep *core.SourceReputation) {
		penalty := contradictPerSource * float64(contradictors)
		if penalty > maxContradictPenalty {
			penalty = maxContradictPenalty
		}
		rep.ReputationScore -= penalty
		if rep.ReputationScore < 0 {
			rep.ReputationScore = 0
		}
		rep.RejectedCount++
	})
}

// RecordQuality folds one article's quality score in [0,100] into the
// rolling quality and reputation averages.
func (t *Tracker) RecordQuality(sourceID string, score float64, accepted bool) core.SourceReputation {
	q := score / 100
	if q < 0 {
		q = 0
	} else if q > 1 {
		q = 1
	}
	return t.mutate(sourceID, func(rep *core.SourceReputation) {
		rep.QualityScore = (1-qualityAlpha)*rep.QualityScore + qualityAlpha*q
		rep.ReputationScore = (1-qualityAlpha)*rep.ReputationScore + qualityAlpha*q
		if max := rep.Tier.MaxScore(); rep.ReputationScore > max {
			rep.ReputationScore = max
		}
		if accepted {
			rep.AcceptedCount++
		} else {
			rep.RejectedCount++
		}
	})
}

// Adjust applies a learning-loop delta. The result stays within [0, tier max].
func (t *Tracker) Adjust(sourceID string, delta float64) core.SourceReputation {
	return t.mutate(sourceID, func(rep *core.SourceReputation) {
		rep.ReputationScore += delta
		if rep.ReputationScore < 0 {
			rep.ReputationScore = 0
		}
		if max := rep.Tier.MaxScore(); rep.ReputationScore > max {
			rep.ReputationScore = max
		}
	})
}

// mutate applies fn to a copy of the source's snapshot under the source
// lock, appends the history point and publishes the new snapshot.
func (t *Tracker) mutate(sourceID string, fn func(*core.SourceReputation)) core.SourceReputation {
	st := t.ensure(sourceID)
	st.mu.Lock()
	defer st.mu.Unlock()

	old := st.snap.Load()
	rep := *old
	rep.History = append([]core.ReputationPoint(nil), old.History...)

	fn(&rep)

	now := time.Now()
	rep.LastUpdated = now
	rep.History = append(rep.History, core.ReputationPoint{Timestamp: now, Score: rep.ReputationScore})
	if len(rep.History) > historyCap {
		rep.History = rep.History[len(rep.History)-historyCap:]
	}

	if !rep.AutoDisabled && rep.ReputationScore < autoDisableScore && rep.TotalObservations() >= autoDisableMinObs {
		rep.AutoDisabled = true
		t.log.Warn().
			Str("source", sourceID).
			Float64("reputation", rep.ReputationScore).
			Int("observations", rep.TotalObservations()).
			Msg("source auto-disabled")
	}

	st.snap.Store(&rep)
	t.reg.SetReputation(sourceID, rep.ReputationScore)
	return rep
}
