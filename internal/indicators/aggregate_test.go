package indicators

import (
	"testing"
	"time"

	"newslens/internal/core"
)

func enriched(id, title, body string, sentiment float64) *core.EnrichedArticle {
	return &core.EnrichedArticle{
		RawArticle:     core.RawArticle{ArticleID: id, Title: title, Body: body},
		SentimentScore: sentiment,
	}
}

func TestCatalogShape(t *testing.T) {
	defs := Catalog()
	if len(defs) < 80 {
		t.Fatalf("catalog has %d definitions, want a full spread", len(defs))
	}
	seen := map[string]bool{}
	perCat := map[core.PESTELCategory]int{}
	for _, d := range defs {
		if seen[d.ID] {
			t.Errorf("duplicate indicator id %s", d.ID)
		}
		seen[d.ID] = true
		perCat[d.Category]++
		if !derived(d.CalculationType) && len(d.Keywords) == 0 {
			t.Errorf("%s has no keywords", d.ID)
		}
		if derived(d.CalculationType) && len(d.Components) == 0 {
			t.Errorf("%s is derived but has no components", d.ID)
		}
		for _, c := range d.Components {
			if !seen[c] {
				// Components must be defined earlier in the table so the
				// two-pass run resolves them.
				found := false
				for _, other := range defs {
					if other.ID == c {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("%s references unknown component %s", d.ID, c)
				}
			}
		}
	}
	for _, cat := range core.PESTELCategories() {
		if perCat[cat] < 10 {
			t.Errorf("category %s has only %d indicators", cat, perCat[cat])
		}
	}
}

func TestMatchScoreBands(t *testing.T) {
	tokens := map[string]struct{}{"inflation": {}, "gdp": {}, "exports": {}}
	text := "inflation gdp exports"
	cases := []struct {
		keywords []string
		want     float64
	}{
		{[]string{"inflation", "gdp", "exports", "reserves"}, 1.0},
		{[]string{"inflation", "gdp", "reserves"}, 0.8},
		{[]string{"inflation", "reserves", "currency"}, 0.4},
		{[]string{"reserves", "currency"}, 0},
	}
	for _, c := range cases {
		if got, _ := matchScore(c.keywords, tokens, text); got != c.want {
			t.Errorf("matchScore(%v) = %.1f, want %.1f", c.keywords, got, c.want)
		}
	}
}

func TestFrequencyCountFormula(t *testing.T) {
	a := NewAggregator([]core.IndicatorDefinition{
		def("TEST_FREQ", "Test", core.CategoryEconomic, core.CalcFrequencyCount, 1.0, "inflation", "prices", "cost"),
	}, nil)

	articles := []*core.EnrichedArticle{
		enriched("a1", "Inflation and prices", "cost inflation prices rising", 0),
		enriched("a2", "Prices up", "inflation prices cost concerns", 0),
		enriched("a3", "Inflation report", "prices and cost data inflation", 0),
	}
	snap := a.Run(articles, time.Now())
	v, ok := snap.Value("TEST_FREQ")
	if !ok {
		t.Fatal("no value emitted")
	}
	if want := 50 + 3*5.0; v.Value != want {
		t.Fatalf("value = %.1f, want %.1f", v.Value, want)
	}
	// 3 matched articles, all strong: confidence = min(1, 3/5) * 1.0.
	if want := 0.6; v.Confidence < want-0.001 || v.Confidence > want+0.001 {
		t.Fatalf("confidence = %.3f, want %.3f", v.Confidence, want)
	}
	if v.ArticleCount != 3 {
		t.Fatalf("article count = %d, want 3", v.ArticleCount)
	}
}

func TestUnmatchedIndicatorEmitsNeutral(t *testing.T) {
	a := NewAggregator([]core.IndicatorDefinition{
		def("TEST_QUIET", "Quiet", core.CategorySocial, core.CalcFrequencyCount, 1.0, "nonexistent"),
	}, nil)
	snap := a.Run(nil, time.Now())
	v, ok := snap.Value("TEST_QUIET")
	if !ok {
		t.Fatal("unmatched indicator emitted no value")
	}
	if v.Value != 50 || v.ArticleCount != 0 || v.Confidence != 0 {
		t.Fatalf("unmatched value = %+v, want neutral 50 / count 0 / conf 0", v)
	}
}

func TestSentimentAggregateRescales(t *testing.T) {
	a := NewAggregator([]core.IndicatorDefinition{
		def("TEST_SENT", "Sent", core.CategoryEconomic, core.CalcSentimentAggregate, 1.0, "rupee", "currency", "forex"),
	}, nil)
	articles := []*core.EnrichedArticle{
		enriched("a1", "Rupee currency forex", "rupee currency forex", -0.5),
		enriched("a2", "Rupee currency forex", "rupee currency forex", -0.3),
	}
	snap := a.Run(articles, time.Now())
	v, _ := snap.Value("TEST_SENT")
	// Mean sentiment -0.4 rescales to (−0.4+1)*50 = 30.
	if v.Value < 29.9 || v.Value > 30.1 {
		t.Fatalf("value = %.1f, want 30", v.Value)
	}
}

func TestClusterCountedOnce(t *testing.T) {
	a := NewAggregator([]core.IndicatorDefinition{
		def("TEST_FREQ", "Test", core.CategoryEconomic, core.CalcFrequencyCount, 1.0, "inflation", "prices", "cost"),
	}, nil)
	syndicated := func(id string, quality float64) *core.EnrichedArticle {
		e := enriched(id, "Inflation prices", "inflation prices cost", 0)
		e.TopicID = "cluster-1"
		e.QualityScore = quality
		return e
	}
	snap := a.Run([]*core.EnrichedArticle{
		syndicated("a1", 40), syndicated("a2", 80), syndicated("a3", 60),
	}, time.Now())
	v, _ := snap.Value("TEST_FREQ")
	if v.ArticleCount != 1 {
		t.Fatalf("cluster counted %d times, want once", v.ArticleCount)
	}
	if v.Value != 55 {
		t.Fatalf("value = %.1f, want 55 for a single match", v.Value)
	}
}

func TestActivityIndexWeighting(t *testing.T) {
	a := NewAggregator(nil, nil)
	composites := map[core.PESTELCategory]core.CategoryComposite{}
	for _, cat := range core.PESTELCategories() {
		val := 50.0
		if cat == core.CategoryEconomic {
			val = 40
		}
		composites[cat] = core.CategoryComposite{Category: cat, Value: val, Confidence: 0.5}
	}
	nai := a.activityIndex(composites, time.Now())
	// (1.2*40 + 5*1.0*50) / 6.2 = 298/6.2 ~= 48.06
	if nai.Value < 48.0 || nai.Value > 48.1 {
		t.Fatalf("NAI = %.3f, want ~48.06", nai.Value)
	}
	if nai.Band != "neutral" {
		t.Fatalf("band = %s, want neutral", nai.Band)
	}
}

func TestCompositeIndicatorFollowsComponents(t *testing.T) {
	defs := []core.IndicatorDefinition{
		def("LEAF_A", "A", core.CategoryEconomic, core.CalcFrequencyCount, 1.0, "alpha", "beta", "gamma"),
		def("LEAF_B", "B", core.CategoryEconomic, core.CalcFrequencyCount, 1.0, "delta", "epsilon", "zeta"),
		composite("COMP", "Comp", core.CategoryEconomic, core.CalcComposite, 1.0, "LEAF_A", "LEAF_B"),
	}
	a := NewAggregator(defs, nil)
	articles := []*core.EnrichedArticle{
		enriched("a1", "alpha beta gamma", "alpha beta gamma words", 0),
	}
	snap := a.Run(articles, time.Now())
	comp, ok := snap.Value("COMP")
	if !ok {
		t.Fatal("composite emitted no value")
	}
	// LEAF_A at 55 with confidence, LEAF_B neutral 50 at floor weight:
	// composite must land strictly between.
	if comp.Value <= 50 || comp.Value >= 55 {
		t.Fatalf("composite = %.2f, want between 50 and 55", comp.Value)
	}
}
