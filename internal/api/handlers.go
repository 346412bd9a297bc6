package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/matcher"
)

const maxBodyBytes = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMatch serves POST /v1/match. ?format=geojson returns a
// FeatureCollection instead of the JSON result.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matcher.FilterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var ve *matcher.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.matcher.Match(r.Context(), req)
	if err != nil {
		var (
			ve *matcher.ValidationError
			fe *matcher.FatalInputError
		)
		switch {
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Error())
		case errors.As(err, &fe):
			zap.L().Error("api: match unavailable", zap.String("dataset", fe.Dataset), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "dataset "+fe.Dataset+" unavailable")
		default:
			zap.L().Error("api: match failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	observeMatch(res)

	if r.URL.Query().Get("format") == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(FeatureCollection(res, req.Intent)); err != nil {
			zap.L().Warn("api: encode geojson", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, NewMatchResponse(res, req.Intent))
}

// handlePriceCategories serves GET /v1/price-categories?intent=rent|buy.
func (s *Server) handlePriceCategories(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("intent")
	if raw == "" {
		raw = string(demand.IntentRent)
	}
	intent, err := demand.ParseIntent(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "intent must be buy or rent")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"intent":     intent,
		"categories": matcher.PriceOptions(intent),
	})
}

// handleDemandSummary serves GET /v1/demand/summary.
func (s *Server) handleDemandSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.demand.Summary(r.Context())
	if err != nil {
		zap.L().Error("api: demand summary", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "demand summary unavailable")
		return
	}
	if rows == nil {
		rows = []demand.SummaryRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}
