package matcher

import (
	"sort"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"

	"github.com/tindralencia/barrio-match/internal/geospatial"
)

// WarningKind classifies a non-fatal problem reported with a result.
type WarningKind string

// Warning kinds.
const (
	WarnInvalidGeometry  WarningKind = "invalid_geometry"
	WarnDuplicateName    WarningKind = "duplicate_name"
	WarnPriceJoin        WarningKind = "price_join"
	WarnStepFailed       WarningKind = "step_failed"
	WarnAuditWriteFailed WarningKind = "audit_write_failed"
)

// Warning is a degraded-data or audit condition carried alongside a result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Dataset string      `json:"dataset,omitempty"`
	Message string      `json:"message"`
	Count   int         `json:"count,omitempty"`
}

// MatchedNeighborhood is a neighborhood that satisfied every criterion.
// Price fields are zero when no price row was joined.
type MatchedNeighborhood struct {
	Name           string  `json:"name"`
	Security       int     `json:"security"`
	PriceCategory  int     `json:"price_category,omitempty"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	Geom           geom.T  `json:"-"`
}

// MatchResult is the output of one run. It is built fresh per request and
// owned by the caller.
type MatchResult struct {
	RequestID     uuid.UUID                      `json:"request_id"`
	Neighborhoods []MatchedNeighborhood          `json:"neighborhoods"`
	TransitStops  []geospatial.TransitStop       `json:"transit_stops"`
	Schools       []geospatial.EducationalCenter `json:"schools"`
	PlayAreas     []geospatial.PlayArea          `json:"play_areas"`
	Warnings      []Warning                      `json:"warnings"`
	Recorded      bool                           `json:"recorded"`
}

// Degraded reports whether any warning was raised.
func (r *MatchResult) Degraded() bool {
	return len(r.Warnings) > 0
}

// Names returns the matched neighborhood names in result order.
func (r *MatchResult) Names() []string {
	names := make([]string, len(r.Neighborhoods))
	for i, n := range r.Neighborhoods {
		names[i] = n.Name
	}
	return names
}

// sortByName orders items by display name. Ties keep their input order so
// identical inputs always render identically.
func sortByName[T geospatial.Located](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DisplayName() < items[j].DisplayName()
	})
}
