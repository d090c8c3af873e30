package learning

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"newslens/internal/core"
	"newslens/internal/validate"
)

func signal(t core.FeedbackType, source string) core.FeedbackSignal {
	return core.FeedbackSignal{Type: t, SourceID: source, SourceLayer: "ingest"}
}

func submitN(l *FeedbackLoop, t core.FeedbackType, source string, n int) {
	for i := 0; i < n; i++ {
		l.Submit(signal(t, source))
	}
}

func TestFlushAdjustsReputation(t *testing.T) {
	tracker := validate.NewTracker(nil)
	tracker.Register("s1", core.TierTwo) // base 0.65
	loop := NewFeedbackLoop(tracker, ModeActive, 10, 0, nil)

	// 8 positive, 2 negative: ratio 0.8, delta (0.8-0.5)*2*0.02 = 0.012.
	submitN(loop, core.FeedbackArticleUsed, "s1", 8)
	submitN(loop, core.FeedbackArticleDiscarded, "s1", 2)

	got := tracker.Credibility("s1")
	want := 0.65 + 0.012
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("reputation = %.4f, want %.4f", got, want)
	}
}

func TestNegativeFlushCapped(t *testing.T) {
	tracker := validate.NewTracker(nil)
	tracker.Register("s1", core.TierTwo)
	loop := NewFeedbackLoop(tracker, ModeActive, 10, 0, nil)

	// All negative: ratio 0, delta -0.02 at the cap.
	submitN(loop, core.FeedbackArticleDiscarded, "s1", 10)

	got := tracker.Credibility("s1")
	want := 0.65 - maxAdjustStep
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("reputation = %.4f, want %.4f", got, want)
	}
}

func TestShadowModeComputesWithoutApplying(t *testing.T) {
	tracker := validate.NewTracker(nil)
	tracker.Register("s1", core.TierTwo)
	loop := NewFeedbackLoop(tracker, ModeShadow, 10, 0, nil)

	submitN(loop, core.FeedbackArticleUsed, "s1", 10)

	if got := tracker.Credibility("s1"); got != 0.65 {
		t.Fatalf("shadow mode changed reputation to %.4f", got)
	}
	// Signals are still tallied in shadow mode.
	if r := loop.Rates("s1"); r.SignalCount != 10 {
		t.Fatalf("signal count = %d, want 10", r.SignalCount)
	}
}

func TestOffModeDropsSignals(t *testing.T) {
	loop := NewFeedbackLoop(validate.NewTracker(nil), ModeOff, 10, 0, nil)
	submitN(loop, core.FeedbackArticleUsed, "s1", 5)
	if r := loop.Rates("s1"); r.SignalCount != 0 {
		t.Fatalf("off mode retained %d signals", r.SignalCount)
	}
}

func TestHandlerFailureSwallowed(t *testing.T) {
	loop := NewFeedbackLoop(validate.NewTracker(nil), ModeActive, 100, 0, nil)
	calls := 0
	loop.Register(func(core.FeedbackSignal) error { return errors.New("broken subscriber") })
	loop.Register(func(core.FeedbackSignal) error { calls++; return nil })

	loop.Submit(signal(core.FeedbackRelevant, "s1"))

	if calls != 1 {
		t.Fatalf("second handler called %d times, want 1", calls)
	}
	if r := loop.Rates("s1"); r.SignalCount != 1 {
		t.Fatal("failing handler blocked the signal")
	}
}

func TestRatesWeighting(t *testing.T) {
	loop := NewFeedbackLoop(validate.NewTracker(nil), ModeActive, 100, 0, nil)

	// usage 3/4, relevance 1/2, accuracy unobserved (reads 0.5).
	submitN(loop, core.FeedbackArticleUsed, "s1", 3)
	submitN(loop, core.FeedbackArticleDiscarded, "s1", 1)
	submitN(loop, core.FeedbackRelevant, "s1", 1)
	submitN(loop, core.FeedbackIrrelevant, "s1", 1)

	r := loop.Rates("s1")
	want := 0.4*0.75 + 0.3*0.5 + 0.3*0.5
	if math.Abs(r.Overall-want) > 1e-9 {
		t.Fatalf("overall = %.4f, want %.4f", r.Overall, want)
	}
	if r.AccuracyRate != 0.5 {
		t.Fatalf("accuracy with no evidence = %.2f, want 0.5", r.AccuracyRate)
	}
}

func TestSweepDropsExpiredSignals(t *testing.T) {
	loop := NewFeedbackLoop(validate.NewTracker(nil), ModeActive, 100, 30*24*time.Hour, nil)

	old := signal(core.FeedbackArticleUsed, "s1")
	old.CreatedAt = time.Now().Add(-31 * 24 * time.Hour)
	loop.Submit(old)
	loop.Submit(signal(core.FeedbackArticleUsed, "s1"))

	if removed := loop.Sweep(time.Now()); removed != 1 {
		t.Fatalf("sweep removed %d, want 1", removed)
	}
	if r := loop.Rates("s1"); r.SignalCount != 1 {
		t.Fatalf("signal count after sweep = %d, want 1", r.SignalCount)
	}
}

func TestAutoDisableThroughQualityStream(t *testing.T) {
	tracker := validate.NewTracker(nil)
	tracker.Register("junk", core.TierTwo)
	for i := 0; i < 25; i++ {
		tracker.RecordQuality("junk", 20, false)
	}
	if !tracker.Disabled("junk") {
		t.Fatal("persistently poor source was not auto-disabled")
	}
}

func TestTunerLengthensTTLForStableSources(t *testing.T) {
	mt := NewMetricsTracker()
	tuner := NewAutoTuner(mt, nil, ModeActive)
	for i := 0; i < 12; i++ {
		mt.RecordCacheRevisit("gazette", false) // content never changes
	}
	tuner.Cycle(context.Background())
	if got := tuner.TTLMultiplier("gazette"); got != ttlStepUp {
		t.Fatalf("multiplier = %.2f, want %.2f", got, ttlStepUp)
	}
}

func TestTunerShortensTTLForChurningSources(t *testing.T) {
	mt := NewMetricsTracker()
	tuner := NewAutoTuner(mt, nil, ModeActive)
	for i := 0; i < 12; i++ {
		mt.RecordCacheRevisit("wire", true)
	}
	tuner.Cycle(context.Background())
	if got := tuner.TTLMultiplier("wire"); got != ttlStepDown {
		t.Fatalf("multiplier = %.2f, want %.2f", got, ttlStepDown)
	}
}

func TestTunerShadowModeDoesNotApply(t *testing.T) {
	mt := NewMetricsTracker()
	tuner := NewAutoTuner(mt, nil, ModeShadow)
	for i := 0; i < 12; i++ {
		mt.RecordCacheRevisit("gazette", false)
	}
	tuner.Cycle(context.Background())
	if got := tuner.TTLMultiplier("gazette"); got != 1.0 {
		t.Fatalf("shadow mode applied multiplier %.2f", got)
	}
}

func TestTunerNudgesQualityFloor(t *testing.T) {
	mt := NewMetricsTracker()
	tuner := NewAutoTuner(mt, nil, ModeActive)
	for i := 0; i < 30; i++ {
		mt.RecordAcceptance("s1", true) // gate passing everything
	}
	tuner.Cycle(context.Background())
	if got := tuner.Thresholds().QualityFloor; got != 42 {
		t.Fatalf("quality floor = %.0f, want 42 after tightening", got)
	}

	mt2 := NewMetricsTracker()
	tuner2 := NewAutoTuner(mt2, nil, ModeActive)
	for i := 0; i < 30; i++ {
		mt2.RecordAcceptance("s1", i%2 == 0) // 50% acceptance, too strict
	}
	tuner2.Cycle(context.Background())
	if got := tuner2.Thresholds().QualityFloor; got != 38 {
		t.Fatalf("quality floor = %.0f, want 38 after loosening", got)
	}
}
