package matcher

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/geospatial"
)

// Datasets is an immutable, already normalized snapshot of the base data.
type Datasets struct {
	Neighborhoods []geospatial.Neighborhood
	Prices        []geospatial.PriceRecord
	TransitStops  []geospatial.TransitStop
	Centers       []geospatial.EducationalCenter
	PlayAreas     []geospatial.PlayArea
}

// Step names, in execution order.
const (
	StepSecurity  = "security"
	StepPrice     = "price"
	StepTransit   = "transit"
	StepEducation = "education"
	StepPlayArea  = "play_area"
	stepDisplay   = "display"
)

// run carries the state threaded through the five steps.
type run struct {
	req      FilterRequest
	ds       Datasets
	current  []geospatial.Neighborhood
	stops    []geospatial.TransitStop
	centers  []geospatial.EducationalCenter
	play     []geospatial.PlayArea
	warnings []Warning
}

// Run applies the five criteria in fixed order to ds and returns the result
// with every output set sorted by name. It never fails: a step that panics on
// malformed geometry leaves its sub-collection empty and adds a step_failed
// warning. Run does not record demand.
func Run(req FilterRequest, ds Datasets) *MatchResult {
	r := &run{req: req, ds: ds, current: ds.Neighborhoods}

	r.step(StepSecurity, r.security, func() { r.current = nil })
	r.step(StepPrice, r.price, func() { r.current = nil })
	r.step(StepTransit, r.transit, func() {
		r.stops = nil
		if req.RequireTransit {
			r.current = nil
		}
	})
	r.step(StepEducation, r.education, func() {
		r.centers = nil
		r.current = nil
	})
	r.step(StepPlayArea, r.playArea, func() { r.play = nil })
	r.step(stepDisplay, r.display, func() {
		r.stops, r.centers, r.play = nil, nil, nil
	})

	return r.result()
}

// step runs fn, recovering from a panic by applying degrade and recording a
// warning.
func (r *run) step(name string, fn func(), degrade func()) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Warn("matcher: step failed",
				zap.String("step", name),
				zap.Any("panic", p),
			)
			degrade()
			r.warnings = append(r.warnings, Warning{
				Kind:    WarnStepFailed,
				Message: fmt.Sprintf("%s step failed: %v", name, p),
			})
		}
	}()
	fn()
}

func (r *run) security() {
	if r.req.MinSecurity <= geospatial.MinSecurity {
		return
	}
	kept := make([]geospatial.Neighborhood, 0, len(r.current))
	for _, n := range r.current {
		if n.Security >= r.req.MinSecurity {
			kept = append(kept, n)
		}
	}
	r.current = kept
}

// price inner-joins the current set with the price table by exact name.
func (r *run) price() {
	if r.req.Price == PriceAny {
		return
	}
	byName := priceIndex(r.ds.Prices)

	kept := make([]geospatial.Neighborhood, 0, len(r.current))
	missing := 0
	for _, n := range r.current {
		p, ok := byName[n.Name]
		if !ok {
			missing++
			continue
		}
		if p.Category == int(r.req.Price) {
			kept = append(kept, n)
		}
	}
	r.current = kept

	if missing > 0 {
		r.warnings = append(r.warnings, Warning{
			Kind:    WarnPriceJoin,
			Dataset: geospatial.DatasetPrices,
			Message: fmt.Sprintf("%d neighborhoods have no price record and were dropped", missing),
			Count:   missing,
		})
	}
}

func (r *run) transit() {
	r.stops = geospatial.WithinUnion(r.ds.TransitStops, r.current)
	if r.req.RequireTransit {
		r.current = geospatial.RegionsIntersecting(r.current, r.stops)
	}
}

// education keeps only neighborhoods holding an accepted school. No accepted
// school anywhere empties the candidate set.
func (r *run) education() {
	regimes := r.req.regimeSet()
	if len(regimes) == 0 {
		return
	}
	inside := geospatial.WithinUnion(r.ds.Centers, r.current)
	centers := make([]geospatial.EducationalCenter, 0, len(inside))
	for _, c := range inside {
		if _, ok := regimes[CanonicalRegime(c.Regime)]; ok {
			centers = append(centers, c)
		}
	}
	r.centers = centers

	if len(centers) == 0 {
		r.current = nil
		return
	}
	r.current = geospatial.RegionsIntersecting(r.current, centers)
}

// playArea fills the display set only. It does not narrow neighborhoods.
func (r *run) playArea() {
	if !r.req.RequirePlayArea {
		return
	}
	r.play = geospatial.WithinUnion(r.ds.PlayAreas, r.current)
}

// display narrows every point set to the final neighborhood boundary.
func (r *run) display() {
	if r.req.showTransit() {
		r.stops = geospatial.WithinUnion(r.stops, r.current)
	} else {
		r.stops = nil
	}
	r.centers = geospatial.WithinUnion(r.centers, r.current)
	r.play = geospatial.WithinUnion(r.play, r.current)
}

func (r *run) result() *MatchResult {
	byName := priceIndex(r.ds.Prices)

	hoods := make([]MatchedNeighborhood, 0, len(r.current))
	for _, n := range r.current {
		m := MatchedNeighborhood{Name: n.Name, Security: n.Security, Geom: n.Geom}
		if p, ok := byName[n.Name]; ok {
			m.PriceCategory = p.Category
			m.ReferencePrice = p.ReferencePrice
		}
		hoods = append(hoods, m)
	}
	sort.SliceStable(hoods, func(i, j int) bool { return hoods[i].Name < hoods[j].Name })

	stops := append(make([]geospatial.TransitStop, 0, len(r.stops)), r.stops...)
	centers := append(make([]geospatial.EducationalCenter, 0, len(r.centers)), r.centers...)
	play := append(make([]geospatial.PlayArea, 0, len(r.play)), r.play...)
	sortByName(stops)
	sortByName(centers)
	sortByName(play)

	warnings := r.warnings
	if warnings == nil {
		warnings = []Warning{}
	}
	return &MatchResult{
		Neighborhoods: hoods,
		TransitStops:  stops,
		Schools:       centers,
		PlayAreas:     play,
		Warnings:      warnings,
	}
}

// priceIndex maps neighborhood name to its first price record.
func priceIndex(prices []geospatial.PriceRecord) map[string]geospatial.PriceRecord {
	idx := make(map[string]geospatial.PriceRecord, len(prices))
	for _, p := range prices {
		if _, ok := idx[p.Neighborhood]; !ok {
			idx[p.Neighborhood] = p
		}
	}
	return idx
}
