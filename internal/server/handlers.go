package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"newslens/internal/core"
	"newslens/internal/indicators"
	"newslens/internal/pipeline"
)

const (
	defaultValueDays      = 30
	defaultForecastDays   = 7
	maxForecastDays       = 30
	defaultTrendWindowDay = 14
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleRun kicks off a pipeline pass in the background. An active run
// makes this a no-op rather than an error.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline == nil {
		s.writeError(w, http.StatusNotFound, "pipeline not wired")
		return
	}
	force := r.URL.Query().Get("force") == "true"
	// The run outlives the request; detach it from the request context.
	go func() {
		if _, err := s.deps.Pipeline.Run(context.Background(), force); err != nil && err != pipeline.ErrRunInProgress {
			s.log.Error().Err(err).Msg("api-triggered run failed")
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleInsights serves the cached bundle. Absence is a 404, never a
// recompute on the request path.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if s.deps.Generator == nil {
		s.writeError(w, http.StatusNotFound, "insights not wired")
		return
	}
	bundle, ok := s.deps.Generator.CachedBundle(r.Context(), companyID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no bundle for company "+companyID)
		return
	}
	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleNAI(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Pipeline == nil {
		s.writeError(w, http.StatusNotFound, "pipeline not wired")
		return
	}
	snapshot := s.deps.Pipeline.LastSnapshot()
	if snapshot == nil {
		s.writeError(w, http.StatusNotFound, "no completed run yet")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot.NAI)
}

func (s *Server) handleIndicatorSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Pipeline == nil {
		s.writeError(w, http.StatusNotFound, "pipeline not wired")
		return
	}
	snapshot := s.deps.Pipeline.LastSnapshot()
	if snapshot == nil {
		s.writeError(w, http.StatusNotFound, "no completed run yet")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) findDefinition(id string) (core.IndicatorDefinition, bool) {
	for _, def := range s.deps.Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return core.IndicatorDefinition{}, false
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, ok := s.findDefinition(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown indicator "+id)
		return
	}
	resp := map[string]any{"definition": def}
	if s.deps.Series != nil {
		if latest, ok := s.deps.Series.Latest(id); ok {
			resp["latest"] = latest
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndicatorValues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Series == nil {
		s.writeError(w, http.StatusNotFound, "series not wired")
		return
	}
	if _, ok := s.findDefinition(id); !ok {
		s.writeError(w, http.StatusNotFound, "unknown indicator "+id)
		return
	}
	days := queryInt(r, "days", defaultValueDays)
	cutoff := time.Now().AddDate(0, 0, -days)
	values := s.deps.Series.Since(id, cutoff)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"indicator_id": id,
		"days":         days,
		"values":       values,
	})
}

func (s *Server) handleIndicatorTrend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Series == nil {
		s.writeError(w, http.StatusNotFound, "series not wired")
		return
	}
	if _, ok := s.findDefinition(id); !ok {
		s.writeError(w, http.StatusNotFound, "unknown indicator "+id)
		return
	}
	window := queryInt(r, "window", defaultTrendWindowDay)
	series := s.deps.Series.Series(id)
	trend := indicators.AnalyzeTrend(id, series, window, time.Now())
	s.writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleIndicatorForecast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Series == nil {
		s.writeError(w, http.StatusNotFound, "series not wired")
		return
	}
	if _, ok := s.findDefinition(id); !ok {
		s.writeError(w, http.StatusNotFound, "unknown indicator "+id)
		return
	}
	horizon := queryInt(r, "horizon", defaultForecastDays)
	if horizon > maxForecastDays {
		horizon = maxForecastDays
	}
	series := s.deps.Series.Series(id)
	points := indicators.Forecast(id, series, horizon, time.Now())
	s.writeJSON(w, http.StatusOK, map[string]any{
		"indicator_id": id,
		"horizon":      horizon,
		"points":       points,
	})
}

func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Sources == nil {
		s.writeError(w, http.StatusNotFound, "sources not wired")
		return
	}
	type sourceView struct {
		core.Source
		Reputation *core.SourceReputation `json:"reputation,omitempty"`
	}
	var out []sourceView
	for _, src := range s.deps.Sources.All() {
		view := sourceView{Source: src}
		if s.deps.Tracker != nil {
			if rep, ok := s.deps.Tracker.Snapshot(src.ID); ok {
				view.Reputation = &rep
			}
		}
		out = append(out, view)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sources": out, "total": len(out)})
}

func (s *Server) handleSourceReputation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Tracker == nil {
		s.writeError(w, http.StatusNotFound, "reputation not wired")
		return
	}
	rep, ok := s.deps.Tracker.Snapshot(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown source "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListCompanies(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Profiles == nil {
		s.writeError(w, http.StatusNotFound, "profiles not wired")
		return
	}
	companies := s.deps.Profiles.All()
	s.writeJSON(w, http.StatusOK, map[string]any{"companies": companies, "total": len(companies)})
}

func (s *Server) handleAddCompany(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		s.writeError(w, http.StatusNotFound, "profiles not wired")
		return
	}
	var profile core.CompanyProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid profile payload: "+err.Error())
		return
	}
	if err := s.deps.Profiles.Add(profile); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleRemoveCompany(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		s.writeError(w, http.StatusNotFound, "profiles not wired")
		return
	}
	s.deps.Profiles.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Dedup == nil {
		s.writeError(w, http.StatusNotFound, "dedup not wired")
		return
	}
	cluster, ok := s.deps.Dedup.Clusters().Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown cluster "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, cluster)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
