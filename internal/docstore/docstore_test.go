package docstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslens/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestArticleRoundTrip(t *testing.T) {
	s := openTestStore(t)

	raw := &core.RawArticle{
		ArticleID: core.ArticleIDFor("https://example.com/a"),
		SourceID:  "ada_derana",
		Title:     "Port reopens",
		Body:      "The eastern terminal resumed operations this morning.",
		RawHeaders: map[string]string{
			"ETag": `"abc"`,
		},
	}
	require.NoError(t, s.SaveArticle(raw))

	doc, err := s.GetArticle(raw.ArticleID)
	require.NoError(t, err)
	assert.Equal(t, raw.Body, doc.Body)
	assert.Equal(t, `"abc"`, doc.Headers["ETag"])
	assert.False(t, doc.StoredAt.IsZero())
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetArticle("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveArticleRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.SaveArticle(&core.RawArticle{}))
	assert.Error(t, s.SaveArticle(nil))
}

func TestEnrichmentRoundTrip(t *testing.T) {
	s := openTestStore(t)

	enriched := &core.EnrichedArticle{
		RawArticle:     core.RawArticle{ArticleID: "a1"},
		PESTELCategory: core.CategoryEconomic,
		QualityScore:   72,
	}
	require.NoError(t, s.SaveEnrichment(enriched))

	got, err := s.GetEnrichment("a1")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryEconomic, got.PESTELCategory)
	assert.Equal(t, 72.0, got.QualityScore)
}

func TestArticlesBySource(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, s.SaveArticle(&core.RawArticle{ArticleID: id, SourceID: "wire", Body: "x"}))
	}
	require.NoError(t, s.SaveArticle(&core.RawArticle{ArticleID: "b1", SourceID: "other", Body: "x"}))

	docs, err := s.ArticlesBySource("wire", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "wire", d.SourceID)
	}
}

func TestNarrativesByCompany(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveNarrative(NarrativeDoc{
		InsightID: "i1", CompanyID: "c1", Kind: "risk", Narrative: "text",
		Reasoning: map[string]any{"triggers": []string{"ECON_CURRENCY"}},
	}))
	require.NoError(t, s.SaveNarrative(NarrativeDoc{InsightID: "i2", CompanyID: "c2", Kind: "risk"}))

	docs, err := s.NarrativesForCompany("c1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "i1", docs[0].InsightID)

	got, err := s.GetNarrative("i1")
	require.NoError(t, err)
	assert.Equal(t, "text", got.Narrative)
}

func TestDeleteArticleRemovesBothDocs(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveArticle(&core.RawArticle{ArticleID: "a1", SourceID: "w", Body: "x"}))
	require.NoError(t, s.SaveEnrichment(&core.EnrichedArticle{RawArticle: core.RawArticle{ArticleID: "a1"}}))

	require.NoError(t, s.DeleteArticle("a1"))
	_, err := s.GetArticle("a1")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.GetEnrichment("a1")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteArticle("a1"))
}
