package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/legislens/internal/aggregator"
	"github.com/ppiankov/legislens/internal/congress"
	"github.com/ppiankov/legislens/internal/llm"
	"github.com/ppiankov/legislens/internal/model"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type availabilityResponse struct {
	aggregator.Availability
	RecommendedLevel model.Level `json:"recommendedLevel"`
}

// analysisBody is the POST /api/analysis payload. Omitted option flags take
// the level's preset value.
type analysisBody struct {
	BillID         string                 `json:"billId"`
	Title          string                 `json:"title"`
	Summary        string                 `json:"summary"`
	Text           string                 `json:"text"`
	IntroducedDate string                 `json:"introducedDate"`
	Level          string                 `json:"level"`
	Options        *model.OptionOverrides `json:"options"`
	Refresh        bool                   `json:"refresh"`
}

// billBody is the optional POST /api/bills/... payload
type billBody struct {
	Level   string                 `json:"level"`
	Options *model.OptionOverrides `json:"options"`
	Refresh bool                   `json:"refresh"`
}

// AnalysisResponse is returned by both analysis endpoints
type AnalysisResponse struct {
	Analysis *model.CompositeAnalysis `json:"analysis"`
	Level    model.Level              `json:"level"`
	Cached   bool                     `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	av := s.analyzer.CheckAvailability(r.Context())
	writeJSON(w, http.StatusOK, availabilityResponse{Availability: av, RecommendedLevel: av.RecommendedLevel()})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var body analysisBody
	if err := decodeBody(w, r, &body, false); err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	level, err := s.level(body.Level)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidLevel, err.Error())
		return
	}

	req := model.AnalysisRequest{
		BillID:  strings.TrimSpace(body.BillID),
		Title:   body.Title,
		Summary: body.Summary,
		Text:    body.Text,
		Options: applyOverrides(level, body.Options),
	}
	if body.IntroducedDate != "" {
		t, err := parseDate(body.IntroducedDate)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())
			return
		}
		req.IntroducedDate = &t
	}

	s.analyze(w, r, req, level, body.Refresh)
}

func (s *Server) handleBillAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.bills == nil || !s.bills.Configured() {
		s.writeError(w, r, http.StatusBadGateway, CodeUpstream, "Congress.gov is not configured")
		return
	}

	ref, err := congress.ParseBillRef(strings.Join([]string{
		chi.URLParam(r, "congress"), chi.URLParam(r, "type"), chi.URLParam(r, "number"),
	}, "/"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	var body billBody
	if err := decodeBody(w, r, &body, true); err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}
	levelName := body.Level
	if q := r.URL.Query().Get("level"); q != "" {
		levelName = q
	}
	level, err := s.level(levelName)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidLevel, err.Error())
		return
	}
	refresh := body.Refresh || r.URL.Query().Get("refresh") == "true"
	opts := applyOverrides(level, body.Options)

	if !refresh && level.IsPreset(opts) {
		if s.respondCached(w, r, ref.ID(), level) {
			return
		}
	}

	bill, err := s.bills.Fetch(r.Context(), ref)
	if err != nil {
		status, code := upstreamStatus(err)
		s.writeError(w, r, status, code, fmt.Sprintf("fetch bill %s: %v", ref, err))
		return
	}

	// Cache was already checked above
	s.analyze(w, r, bill.AnalysisRequest(opts), level, true)
}

// analyze serves from cache unless refresh, otherwise runs and stores. Only
// bill-keyed runs with the level's exact flag set touch the cache.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, req model.AnalysisRequest, level model.Level, refresh bool) {
	ctx := r.Context()
	cacheable := req.BillID != "" && level.IsPreset(req.Options)
	if !refresh && cacheable {
		if s.respondCached(w, r, req.BillID, level) {
			return
		}
	}

	analysis, err := s.analyzer.Run(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			s.writeError(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())
		case errors.Is(err, llm.ErrCancelled):
			s.writeError(w, r, http.StatusServiceUnavailable, CodeCancelled, err.Error())
		default:
			s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err.Error())
		}
		return
	}

	if cacheable {
		if err := s.store.Store(ctx, req.BillID, level, analysis); err != nil {
			s.logger.Warn("cache store failed", map[string]any{
				"request_id": RequestIDFromContext(ctx),
				"bill":       req.BillID,
				"error":      err,
			})
		}
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{Analysis: analysis, Level: level})
}

func (s *Server) respondCached(w http.ResponseWriter, r *http.Request, billID string, level model.Level) bool {
	cached, found, err := s.store.Lookup(r.Context(), billID, level)
	if err != nil {
		s.logger.Warn("cache lookup failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"bill":       billID,
			"error":      err,
		})
		return false
	}
	if !found {
		return false
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{Analysis: cached, Level: level, Cached: true})
	return true
}

func (s *Server) level(name string) (model.Level, error) {
	if strings.TrimSpace(name) == "" {
		return s.defaultLevel, nil
	}
	return model.ParseLevel(name)
}

func applyOverrides(level model.Level, overrides *model.OptionOverrides) model.AnalysisOptions {
	opts := level.Options()
	if overrides != nil {
		opts = overrides.Apply(opts)
	}
	return opts
}

// upstreamStatus maps a Congress.gov failure onto an HTTP status
func upstreamStatus(err error) (int, string) {
	switch {
	case errors.Is(err, congress.ErrBillNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, congress.ErrNoText):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, llm.ErrCancelled):
		return http.StatusServiceUnavailable, CodeCancelled
	default:
		return http.StatusBadGateway, CodeUpstream
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid introducedDate %q (want YYYY-MM-DD)", value)
}
