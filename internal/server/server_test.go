package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/indicators"
	"newslens/internal/insights"
	"newslens/internal/kv"
	"newslens/internal/sources"
	"newslens/internal/validate"
)

func testServer(t *testing.T, mutate func(*Deps)) *Server {
	t.Helper()

	tracker := validate.NewTracker(nil)
	registry := sources.NewRegistry(tracker)
	require.NoError(t, registry.Add(core.Source{
		ID: "ada_derana", Name: "Ada Derana", URL: "https://adaderana.lk",
		Type: core.SourceTypeNews, Tier: core.TierOne,
	}))

	series := indicators.NewSeriesStore(0)
	now := time.Now()
	for i := range 5 {
		series.Append(core.IndicatorValue{
			IndicatorID: "POL_STABILITY",
			Timestamp:   now.Add(time.Duration(i-5) * 24 * time.Hour),
			Value:       50 + float64(i),
			Confidence:  0.6,
			ComputedAt:  now,
		})
	}

	deps := Deps{
		Series:   series,
		Catalog:  indicators.Catalog(),
		Sources:  registry,
		Tracker:  tracker,
		Profiles: insights.NewProfileRegistry(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return New(config.ServerConfig{Host: "127.0.0.1", Port: 0, CORSOrigins: []string{"*"}}, deps)
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doGet(t, testServer(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestInsightsServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := kv.NewRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bundle := core.InsightBundle{CompanyID: "lanka_retail", GeneratedAt: time.Now()}
	require.NoError(t, kv.SetJSON(context.Background(), store,
		insights.BundleKey("lanka_retail"), bundle, time.Minute))

	s := testServer(t, func(d *Deps) {
		d.Generator = insights.NewGenerator(insights.WithCache(store))
	})

	rec := doGet(t, s, "/api/v1/insights/lanka_retail")
	require.Equal(t, http.StatusOK, rec.Code)
	var got core.InsightBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "lanka_retail", got.CompanyID)

	rec = doGet(t, s, "/api/v1/insights/unknown_co")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndicatorEndpoints(t *testing.T) {
	s := testServer(t, nil)

	rec := doGet(t, s, "/api/v1/indicators/POL_STABILITY")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Government stability")
	assert.Contains(t, rec.Body.String(), `"latest"`)

	rec = doGet(t, s, "/api/v1/indicators/POL_STABILITY/values?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	var values struct {
		Values []core.IndicatorValue `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &values))
	assert.Len(t, values.Values, 5)

	rec = doGet(t, s, "/api/v1/indicators/POL_STABILITY/trend")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, s, "/api/v1/indicators/POL_STABILITY/forecast?horizon=3")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, s, "/api/v1/indicators/NOT_AN_INDICATOR")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSourceEndpoints(t *testing.T) {
	s := testServer(t, nil)

	rec := doGet(t, s, "/api/v1/sources")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada_derana")
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = doGet(t, s, "/api/v1/sources/ada_derana/reputation")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep core.SourceReputation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, core.TierOne, rep.Tier)

	rec = doGet(t, s, "/api/v1/sources/nope/reputation")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompanyCRUD(t *testing.T) {
	s := testServer(t, nil)

	body := strings.NewReader(`{"id":"c1","name":"Ceylon Foods","sector":"food_beverage"}`)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/companies", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doGet(t, s, "/api/v1/companies")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ceylon Foods")

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/companies/c1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doGet(t, s, "/api/v1/companies")
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestCompanyValidation(t *testing.T) {
	s := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/companies",
		strings.NewReader(`{"name":"missing id"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/companies",
		strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNAIUnavailableBeforeFirstRun(t *testing.T) {
	rec := doGet(t, testServer(t, nil), "/api/v1/nai")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
