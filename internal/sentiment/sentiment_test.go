package sentiment

import (
	"context"
	"errors"
	"testing"
)

func TestEmptyTextNeutral(t *testing.T) {
	a := NewAnalyzer(nil)
	res := a.Analyze(context.Background(), "", "")
	if res.Score != 0 {
		t.Errorf("empty score = %.3f, want 0", res.Score)
	}
	if res.Level != Neutral {
		t.Errorf("empty level = %s, want neutral", res.Level)
	}
	if res.Confidence != 0 {
		t.Errorf("empty confidence = %.3f, want 0", res.Confidence)
	}
	if res.ScoreNormalized != 50 {
		t.Errorf("empty normalized = %.1f, want 50", res.ScoreNormalized)
	}
}

func TestNegativeEconomicText(t *testing.T) {
	a := NewAnalyzer(nil)
	res := a.Analyze(context.Background(),
		"Fuel crisis deepens amid shortage",
		"The economic crisis worsened as the fuel shortage triggered panic and fears of collapse.")
	if res.Score >= -0.05 {
		t.Fatalf("score = %.3f, want clearly negative", res.Score)
	}
	if res.Level != Negative && res.Level != VeryNegative {
		t.Fatalf("level = %s, want negative band", res.Level)
	}
	if res.ScoreNormalized >= 50 {
		t.Errorf("normalized = %.1f, want below 50", res.ScoreNormalized)
	}
}

func TestPositiveRecoveryText(t *testing.T) {
	a := NewAnalyzer(nil)
	res := a.Analyze(context.Background(),
		"Tourism recovery gains strength",
		"Strong growth and successful investment boosted the recovery, with a surplus recorded.")
	if res.Score <= 0.05 {
		t.Fatalf("score = %.3f, want clearly positive", res.Score)
	}
	if res.Level != Positive && res.Level != VeryPositive {
		t.Fatalf("level = %s, want positive band", res.Level)
	}
}

func TestNegationFlips(t *testing.T) {
	lex := NewLexicon()
	plain, _ := lex.Score(context.Background(), "the recovery is strong")
	negated, _ := lex.Score(context.Background(), "the recovery is not strong")
	if plain.Score <= 0 {
		t.Fatalf("plain score = %.3f, want positive", plain.Score)
	}
	if negated.Score >= plain.Score {
		t.Fatalf("negated %.3f should score below plain %.3f", negated.Score, plain.Score)
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  SentimentLevel
	}{
		{0.7, VeryPositive}, {0.5, VeryPositive},
		{0.3, Positive}, {0.05, Positive},
		{0.04, Neutral}, {0, Neutral}, {-0.04, Neutral},
		{-0.05, Negative}, {-0.3, Negative},
		{-0.5, VeryNegative}, {-0.9, VeryNegative},
	}
	for _, c := range cases {
		if got := LevelFor(c.score); got != c.want {
			t.Errorf("LevelFor(%.2f) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestTitleBodyWeighting(t *testing.T) {
	a := NewAnalyzer(nil)
	// A positive title over a strongly negative body should land negative:
	// the body carries 0.7 of the weight.
	res := a.Analyze(context.Background(),
		"Strong growth reported",
		"The crisis and collapse deepened with panic, violence, disaster and emergency everywhere.")
	if res.Score >= 0 {
		t.Fatalf("body-dominated score = %.3f, want negative", res.Score)
	}
}

type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }
func (failingBackend) Score(context.Context, string) (Result, error) {
	return Result{}, errors.New("model unavailable")
}

func TestBackendFailureFallsBackToLexicon(t *testing.T) {
	a := NewAnalyzer(failingBackend{})
	res := a.Analyze(context.Background(), "crisis", "the crisis deepened into collapse")
	if res.Score >= 0 {
		t.Fatalf("fallback score = %.3f, want negative from lexicon", res.Score)
	}
}

func TestDistributionSumsToOne(t *testing.T) {
	lex := NewLexicon()
	res, _ := lex.Score(context.Background(), "growth slowed amid concern but recovery continued")
	sum := res.Positive + res.Negative + res.Neutral
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("distribution sums to %.4f, want 1", sum)
	}
}
