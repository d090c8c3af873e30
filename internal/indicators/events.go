package indicators

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"newslens/internal/core"
)

// Event detection thresholds.
const (
	rapidChangeDelta = 15.0
	anomalyZ         = 3.0
	anomalyMinPoints = 10
	dataQualityRuns  = 3    // consecutive zero-confidence runs
	corrBreakDelta   = 20.0 // indicator vs composite divergence
)

// DetectEvents inspects a newly recorded value against the indicator's
// history and definition and returns the excursions it represents. prior
// is the history excluding the new value, ascending.
func DetectEvents(def core.IndicatorDefinition, prior []core.IndicatorValue, value core.IndicatorValue, composite *core.CategoryComposite) []core.IndicatorEvent {
	var events []core.IndicatorEvent
	emit := func(typ core.IndicatorEventType, severity, desc string, before float64) {
		events = append(events, core.IndicatorEvent{
			ID:          uuid.NewString(),
			IndicatorID: def.ID,
			Timestamp:   value.Timestamp,
			EventType:   typ,
			Severity:    severity,
			ValueBefore: before,
			ValueAfter:  value.Value,
			Description: desc,
		})
	}

	var prev *core.IndicatorValue
	if len(prior) > 0 {
		prev = &prior[len(prior)-1]
	}

	// threshold_breach: crossing into the outer band, not sitting in it.
	if prev != nil {
		switch {
		case value.Value > def.Thresholds.High && prev.Value <= def.Thresholds.High:
			emit(core.EventThresholdBreach, breachSeverity(value.Value, def.Thresholds.High, true),
				fmt.Sprintf("%s crossed above %.0f", def.Name, def.Thresholds.High), prev.Value)
		case value.Value < def.Thresholds.Low && prev.Value >= def.Thresholds.Low:
			emit(core.EventThresholdBreach, breachSeverity(value.Value, def.Thresholds.Low, false),
				fmt.Sprintf("%s crossed below %.0f", def.Name, def.Thresholds.Low), prev.Value)
		}
	}

	// rapid_change: large single-run jump.
	if prev != nil {
		if delta := value.Value - prev.Value; math.Abs(delta) >= rapidChangeDelta {
			sev := "warning"
			if math.Abs(delta) >= 2*rapidChangeDelta {
				sev = "critical"
			}
			emit(core.EventRapidChange, sev,
				fmt.Sprintf("%s moved %.1f points in one run", def.Name, delta), prev.Value)
		}
	}

	// anomaly: the new value is far outside the rolling distribution.
	if len(prior) >= anomalyMinPoints {
		mean, sd := meanStddev(prior)
		if sd > 0 {
			if z := (value.Value - mean) / sd; math.Abs(z) >= anomalyZ {
				emit(core.EventAnomaly, "warning",
					fmt.Sprintf("%s at %.1f is %.1f sigma from its mean", def.Name, value.Value, z),
					mean)
			}
		}
	}

	// correlation_break: indicator diverging hard from its category.
	if composite != nil && prev != nil {
		indicatorDelta := value.Value - prev.Value
		compositeDelta := composite.Value - 50
		if indicatorDelta*compositeDelta < 0 && math.Abs(indicatorDelta-compositeDelta) >= corrBreakDelta {
			emit(core.EventCorrelationBreak, "info",
				fmt.Sprintf("%s moving against its %s composite", def.Name, def.Category), prev.Value)
		}
	}

	// data_quality: the series has gone blind.
	if value.Confidence == 0 && len(prior) >= dataQualityRuns-1 {
		blind := true
		for _, v := range prior[len(prior)-(dataQualityRuns-1):] {
			if v.Confidence > 0 {
				blind = false
				break
			}
		}
		if blind {
			before := 0.0
			if prev != nil {
				before = prev.Value
			}
			emit(core.EventDataQuality, "warning",
				fmt.Sprintf("%s has had no article evidence for %d runs", def.Name, dataQualityRuns), before)
		}
	}

	return events
}

func breachSeverity(v, threshold float64, above bool) string {
	excess := v - threshold
	if !above {
		excess = threshold - v
	}
	if excess >= 15 {
		return "critical"
	}
	return "warning"
}

func meanStddev(values []core.IndicatorValue) (float64, float64) {
	var mean float64
	for _, v := range values {
		mean += v.Value
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		ss += (v.Value - mean) * (v.Value - mean)
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}

// SeriesStore keeps per-indicator value history in memory with
// append-only monotonic semantics; a value timestamped at or before the
// newest recorded one is dropped. The relational repo mirrors the same
// rule for durable storage.
type SeriesStore struct {
	series map[string][]core.IndicatorValue
	cap    int
}

// NewSeriesStore builds a store retaining up to capacity points per
// indicator (0 means 365).
func NewSeriesStore(capacity int) *SeriesStore {
	if capacity <= 0 {
		capacity = 365
	}
	return &SeriesStore{series: make(map[string][]core.IndicatorValue), cap: capacity}
}

// Append records a value; stale timestamps report false.
func (s *SeriesStore) Append(v core.IndicatorValue) bool {
	cur := s.series[v.IndicatorID]
	if len(cur) > 0 && !v.Timestamp.After(cur[len(cur)-1].Timestamp) {
		return false
	}
	cur = append(cur, v)
	if len(cur) > s.cap {
		cur = cur[len(cur)-s.cap:]
	}
	s.series[v.IndicatorID] = cur
	return true
}

// Series returns the ascending history for one indicator.
func (s *SeriesStore) Series(indicatorID string) []core.IndicatorValue {
	return s.series[indicatorID]
}

// Latest returns the newest value, if any.
func (s *SeriesStore) Latest(indicatorID string) (core.IndicatorValue, bool) {
	cur := s.series[indicatorID]
	if len(cur) == 0 {
		return core.IndicatorValue{}, false
	}
	return cur[len(cur)-1], true
}

// Since returns values at or after the cutoff.
func (s *SeriesStore) Since(indicatorID string, cutoff time.Time) []core.IndicatorValue {
	cur := s.series[indicatorID]
	for i, v := range cur {
		if !v.Timestamp.Before(cutoff) {
			return cur[i:]
		}
	}
	return nil
}
