package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/geospatial"
	"github.com/tindralencia/barrio-match/internal/matcher"
)

// NeighborhoodView is a matched neighborhood without its geometry.
type NeighborhoodView struct {
	Name           string  `json:"name"`
	Security       int     `json:"security"`
	PriceCategory  int     `json:"price_category,omitempty"`
	PriceLabel     string  `json:"price_label,omitempty"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
}

// PointView is a point of interest flattened to lon/lat.
type PointView struct {
	Name         string  `json:"name"`
	Lon          float64 `json:"lon"`
	Lat          float64 `json:"lat"`
	Regime       string  `json:"regime,omitempty"`
	Address      string  `json:"address,omitempty"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	GenericKind  string  `json:"generic_kind,omitempty"`
	SpecificKind string  `json:"specific_kind,omitempty"`
}

// MatchResponse is the JSON body of a successful match. Geometries are
// reduced to lon/lat points; use FeatureCollection for full shapes.
type MatchResponse struct {
	RequestID     uuid.UUID          `json:"request_id"`
	Neighborhoods []NeighborhoodView `json:"neighborhoods"`
	TransitStops  []PointView        `json:"transit_stops"`
	Schools       []PointView        `json:"schools"`
	PlayAreas     []PointView        `json:"play_areas"`
	Warnings      []matcher.Warning  `json:"warnings"`
	Degraded      bool               `json:"degraded"`
	Recorded      bool               `json:"recorded"`
}

// NewMatchResponse converts a result for display. Price labels follow intent.
func NewMatchResponse(res *matcher.MatchResult, intent demand.Intent) MatchResponse {
	out := MatchResponse{
		RequestID:     res.RequestID,
		Neighborhoods: make([]NeighborhoodView, 0, len(res.Neighborhoods)),
		TransitStops:  make([]PointView, 0, len(res.TransitStops)),
		Schools:       make([]PointView, 0, len(res.Schools)),
		PlayAreas:     make([]PointView, 0, len(res.PlayAreas)),
		Warnings:      res.Warnings,
		Degraded:      res.Degraded(),
		Recorded:      res.Recorded,
	}
	for _, n := range res.Neighborhoods {
		view := NeighborhoodView{Name: n.Name, Security: n.Security, PriceCategory: n.PriceCategory, ReferencePrice: n.ReferencePrice}
		if n.PriceCategory > 0 {
			view.PriceLabel = matcher.PriceCategory(n.PriceCategory).Label(intent)
		}
		out.Neighborhoods = append(out.Neighborhoods, view)
	}
	for _, s := range res.TransitStops {
		out.TransitStops = append(out.TransitStops, newPointView(s.Name, s.Geom))
	}
	for _, c := range res.Schools {
		view := newPointView(c.Name, c.Geom)
		view.Regime = matcher.CanonicalRegime(c.Regime)
		view.Address, view.Email, view.Phone = c.Address, c.Email, c.Phone
		view.GenericKind, view.SpecificKind = c.GenericKind, c.SpecificKind
		out.Schools = append(out.Schools, view)
	}
	for _, p := range res.PlayAreas {
		out.PlayAreas = append(out.PlayAreas, newPointView(p.Name, p.Geom))
	}
	if out.Warnings == nil {
		out.Warnings = []matcher.Warning{}
	}
	return out
}

func newPointView(name string, p *geom.Point) PointView {
	view := PointView{Name: name}
	if p != nil {
		view.Lon, view.Lat = p.X(), p.Y()
	}
	return view
}

// FeatureCollection renders a result as GeoJSON. Every feature carries a
// "kind" property so a map client can style layers without extra lookups.
func FeatureCollection(res *matcher.MatchResult, intent demand.Intent) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for _, n := range res.Neighborhoods {
		props := map[string]interface{}{
			"kind":     "neighborhood",
			"name":     n.Name,
			"security": n.Security,
		}
		if n.PriceCategory > 0 {
			props["price_category"] = n.PriceCategory
			props["price_label"] = matcher.PriceCategory(n.PriceCategory).Label(intent)
			props["reference_price"] = n.ReferencePrice
		}
		fc.Features = append(fc.Features, &geojson.Feature{ID: n.Name, Geometry: n.Geom, Properties: props})
	}
	for _, s := range res.TransitStops {
		fc.Features = append(fc.Features, pointFeature(s, nil))
	}
	for _, c := range res.Schools {
		fc.Features = append(fc.Features, pointFeature(c, map[string]interface{}{
			"regime":  matcher.CanonicalRegime(c.Regime),
			"address": c.Address,
			"email":   c.Email,
			"phone":   c.Phone,
		}))
	}
	for _, p := range res.PlayAreas {
		fc.Features = append(fc.Features, pointFeature(p, nil))
	}
	return fc
}

func pointFeature(item geospatial.Located, extra map[string]interface{}) *geojson.Feature {
	props := map[string]interface{}{
		"kind": item.Category(),
		"name": item.DisplayName(),
	}
	for k, v := range extra {
		if v != "" {
			props[k] = v
		}
	}
	return &geojson.Feature{Geometry: item.Location(), Properties: props}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
