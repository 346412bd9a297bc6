package matcher

import (
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/geospatial"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func square(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}},
	})
}

func pt(x, y float64) *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y})
}

// city is a 3x1 strip of unit squares A | B | C plus a detached D:
//
//	A: security 3, tier 1   B: security 1, tier 2   C: security 2, tier 3   D: security 2, no price
func city() Datasets {
	return Datasets{
		Neighborhoods: []geospatial.Neighborhood{
			{Name: "A", Security: 3, Geom: square(0, 0, 1, 1)},
			{Name: "B", Security: 1, Geom: square(1, 0, 2, 1)},
			{Name: "C", Security: 2, Geom: square(2, 0, 3, 1)},
			{Name: "D", Security: 2, Geom: square(10, 10, 11, 11)},
		},
		Prices: []geospatial.PriceRecord{
			{Neighborhood: "A", ReferencePrice: 700, Category: 1},
			{Neighborhood: "B", ReferencePrice: 950, Category: 2},
			{Neighborhood: "C", ReferencePrice: 1300, Category: 3},
		},
		TransitStops: []geospatial.TransitStop{
			{Name: "Stop A", Geom: pt(0.5, 0.5)},
			{Name: "Stop B", Geom: pt(1.5, 0.5)},
			{Name: "Stop far", Geom: pt(50, 50)},
		},
		Centers: []geospatial.EducationalCenter{
			{Name: "CEIP A", Regime: "Público", Geom: pt(0.2, 0.2)},
			{Name: "Colegio B", Regime: "CONCERTADO", Geom: pt(1.2, 0.2)},
			{Name: "Private C", Regime: "Privado", Geom: pt(2.5, 0.5)},
		},
		PlayAreas: []geospatial.PlayArea{
			{Name: "Jardin A", Geom: pt(0.8, 0.8)},
			{Name: "Jardin B", Geom: pt(1.8, 0.8)},
		},
	}
}

func baseRequest() FilterRequest {
	return FilterRequest{
		Intent:    demand.IntentRent,
		Requester: demand.Requester{Email: "ana@example.com", FirstName: "Ana", LastName: "Puig"},
	}
}

func names(r *MatchResult) []string {
	return r.Names()
}

func stopNames(r *MatchResult) []string {
	out := make([]string, len(r.TransitStops))
	for i, s := range r.TransitStops {
		out[i] = s.Name
	}
	return out
}

func schoolNames(r *MatchResult) []string {
	out := make([]string, len(r.Schools))
	for i, s := range r.Schools {
		out[i] = s.Name
	}
	return out
}

func playNames(r *MatchResult) []string {
	out := make([]string, len(r.PlayAreas))
	for i, p := range r.PlayAreas {
		out[i] = p.Name
	}
	return out
}

func hasWarning(r *MatchResult, kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
