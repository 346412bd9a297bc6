package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/listing"
)

// handleAddListing serves POST /v1/listings.
func (s *Server) handleAddListing(w http.ResponseWriter, r *http.Request) {
	var l listing.Listing
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.listings.Add(r.Context(), l)
	if err != nil {
		writeListingError(w, "api: add listing", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleListListings serves GET /v1/listings?operation=sale|rent&neighborhood=.
func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	op, err := listing.ParseOperation(r.URL.Query().Get("operation"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "operation must be sale or rent")
		return
	}

	items, err := s.listings.List(r.Context(), op, r.URL.Query().Get("neighborhood"))
	if err != nil {
		writeListingError(w, "api: list listings", err)
		return
	}
	if items == nil {
		items = []listing.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"operation": op, "listings": items})
}

// handleYield serves GET /v1/yield?rooms=&bathrooms=&elevator=&parking=.
func (s *Server) handleYield(w http.ResponseWriter, r *http.Request) {
	f, err := parseYieldFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := listing.ComputeYield(r.Context(), s.listings, f)
	if err != nil {
		writeListingError(w, "api: yield", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"filter": f, "rows": rows})
}

func parseYieldFilter(r *http.Request) (listing.Filter, error) {
	q := r.URL.Query()
	var (
		f   listing.Filter
		err error
	)
	if f.Rooms, err = intParam(q.Get("rooms")); err != nil {
		return f, errors.New("rooms must be an integer")
	}
	if f.Bathrooms, err = intParam(q.Get("bathrooms")); err != nil {
		return f, errors.New("bathrooms must be an integer")
	}
	if f.Elevator, err = boolParam(q.Get("elevator")); err != nil {
		return f, errors.New("elevator must be true or false")
	}
	if f.Parking, err = boolParam(q.Get("parking")); err != nil {
		return f, errors.New("parking must be true or false")
	}
	return f, f.Validate()
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func writeListingError(w http.ResponseWriter, msg string, err error) {
	var ve *listing.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	zap.L().Error(msg, zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "listings unavailable")
}
