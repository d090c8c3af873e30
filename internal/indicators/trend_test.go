package indicators

import (
	"testing"
	"time"

	"newslens/internal/core"
)

func dailySeries(id string, start time.Time, values []float64) []core.IndicatorValue {
	out := make([]core.IndicatorValue, len(values))
	for i, v := range values {
		out[i] = core.IndicatorValue{
			IndicatorID: id,
			Timestamp:   start.Add(time.Duration(i) * 24 * time.Hour),
			Value:       v,
		}
	}
	return out
}

func TestRisingTrendDetected(t *testing.T) {
	now := time.Now()
	start := now.Add(-20 * 24 * time.Hour)
	values := make([]float64, 20)
	for i := range values {
		values[i] = 40 + float64(i)*1.5 // strong clean rise
	}
	res := AnalyzeTrend("X", dailySeries("X", start, values), 30, now)
	if res.Slope <= 1.0 {
		t.Fatalf("slope = %.3f, want > 1", res.Slope)
	}
	if res.RSquared < 0.95 {
		t.Fatalf("r2 = %.3f, want near 1 for a clean line", res.RSquared)
	}
	if !res.Significant {
		t.Fatal("clean rise not significant")
	}
	if res.Direction != core.TrendStrongRising {
		t.Fatalf("direction = %s, want strong_rising", res.Direction)
	}
	if res.Momentum <= 40 {
		t.Fatalf("momentum = %.1f, want strongly positive", res.Momentum)
	}
}

func TestFallingTrendIsNegative(t *testing.T) {
	now := time.Now()
	start := now.Add(-20 * 24 * time.Hour)
	values := make([]float64, 20)
	for i := range values {
		values[i] = 70 - float64(i)*1.2
	}
	res := AnalyzeTrend("X", dailySeries("X", start, values), 30, now)
	if !res.Direction.Negative() {
		t.Fatalf("direction = %s, want a falling label", res.Direction)
	}
}

func TestFlatSeriesStable(t *testing.T) {
	now := time.Now()
	start := now.Add(-15 * 24 * time.Hour)
	values := []float64{50, 50.2, 49.8, 50.1, 49.9, 50, 50.1, 49.9, 50, 50.2, 49.8, 50, 50.1, 49.9, 50}
	res := AnalyzeTrend("X", dailySeries("X", start, values), 30, now)
	if res.Direction != core.TrendStable {
		t.Fatalf("direction = %s, want stable", res.Direction)
	}
}

func TestShortSeriesNotSignificant(t *testing.T) {
	now := time.Now()
	res := AnalyzeTrend("X", dailySeries("X", now.Add(-3*24*time.Hour), []float64{40, 60, 80}), 30, now)
	if res.Significant || res.Direction != core.TrendStable {
		t.Fatalf("3-point series classified %s significant=%v, want stable insignificant", res.Direction, res.Significant)
	}
}

func TestChangePointFlagged(t *testing.T) {
	now := time.Now()
	start := now.Add(-14 * 24 * time.Hour)
	values := []float64{50, 50, 51, 50, 49, 50, 51, 50, 75, 75, 74, 75, 76, 75} // one jump
	res := AnalyzeTrend("X", dailySeries("X", start, values), 30, now)
	if len(res.ChangePoints) == 0 {
		t.Fatal("jump of 25 points produced no change point")
	}
	if res.ChangePoints[0].ZScore < changePointZ {
		t.Fatalf("change point z = %.2f, want >= %.1f", res.ChangePoints[0].ZScore, changePointZ)
	}
}

func TestSeriesStoreMonotonic(t *testing.T) {
	s := NewSeriesStore(10)
	base := time.Now()
	if !s.Append(core.IndicatorValue{IndicatorID: "X", Timestamp: base, Value: 50}) {
		t.Fatal("first append rejected")
	}
	if !s.Append(core.IndicatorValue{IndicatorID: "X", Timestamp: base.Add(time.Hour), Value: 55}) {
		t.Fatal("newer append rejected")
	}
	if s.Append(core.IndicatorValue{IndicatorID: "X", Timestamp: base.Add(30 * time.Minute), Value: 52}) {
		t.Fatal("stale append accepted")
	}
	if s.Append(core.IndicatorValue{IndicatorID: "X", Timestamp: base.Add(time.Hour), Value: 56}) {
		t.Fatal("equal-timestamp append accepted")
	}
	got := s.Series("X")
	if len(got) != 2 || got[1].Value != 55 {
		t.Fatalf("series = %+v, want the two accepted points", got)
	}
}

func TestSeriesStoreCapBounds(t *testing.T) {
	s := NewSeriesStore(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Append(core.IndicatorValue{IndicatorID: "X", Timestamp: base.Add(time.Duration(i) * time.Hour), Value: float64(i)})
	}
	got := s.Series("X")
	if len(got) != 3 || got[0].Value != 2 {
		t.Fatalf("capped series = %+v, want last 3 points", got)
	}
}

func TestThresholdBreachEvent(t *testing.T) {
	d := def("X", "Test", core.CategoryEconomic, core.CalcFrequencyCount, 1.0, "kw")
	base := time.Now()
	prior := dailySeries("X", base.Add(-2*24*time.Hour), []float64{60, 65})
	value := core.IndicatorValue{IndicatorID: "X", Timestamp: base, Value: 78, Confidence: 0.5}
	events := DetectEvents(d, prior, value, nil)

	var breach *core.IndicatorEvent
	for i := range events {
		if events[i].EventType == core.EventThresholdBreach {
			breach = &events[i]
		}
	}
	if breach == nil {
		t.Fatal("crossing 70 raised no threshold_breach")
	}
	if breach.ValueBefore != 65 || breach.ValueAfter != 78 {
		t.Fatalf("breach before/after = %.0f/%.0f, want 65/78", breach.ValueBefore, breach.ValueAfter)
	}
	// Already above the line: no repeated breach.
	next := core.IndicatorValue{IndicatorID: "X", Timestamp: base.Add(24 * time.Hour), Value: 80, Confidence: 0.5}
	for _, ev := range DetectEvents(d, append(prior, value), next, nil) {
		if ev.EventType == core.EventThresholdBreach {
			t.Fatal("staying above the threshold re-raised a breach")
		}
	}
}

func TestRapidChangeAndDataQualityEvents(t *testing.T) {
	d := def("X", "Test", core.CategoryEconomic, core.CalcFrequencyCount, 1.0, "kw")
	base := time.Now()

	prior := dailySeries("X", base.Add(-24*time.Hour), []float64{50})
	jump := core.IndicatorValue{IndicatorID: "X", Timestamp: base, Value: 50 + rapidChangeDelta, Confidence: 0.5}
	found := false
	for _, ev := range DetectEvents(d, prior, jump, nil) {
		if ev.EventType == core.EventRapidChange {
			found = true
		}
	}
	if !found {
		t.Fatal("15-point jump raised no rapid_change")
	}

	// Three consecutive blind runs raise data_quality.
	blind := []core.IndicatorValue{
		{IndicatorID: "X", Timestamp: base.Add(-48 * time.Hour), Value: 50},
		{IndicatorID: "X", Timestamp: base.Add(-24 * time.Hour), Value: 50},
	}
	newest := core.IndicatorValue{IndicatorID: "X", Timestamp: base, Value: 50}
	found = false
	for _, ev := range DetectEvents(d, blind, newest, nil) {
		if ev.EventType == core.EventDataQuality {
			found = true
		}
	}
	if !found {
		t.Fatal("blind series raised no data_quality event")
	}
}
