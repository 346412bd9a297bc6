package geospatial

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/location"
)

// MissingGeometryError reports a dataset whose schema declares no geometry column.
// Matching cannot proceed on such a dataset.
type MissingGeometryError struct {
	Dataset string
}

func (e *MissingGeometryError) Error() string {
	return fmt.Sprintf("geo: dataset %q has no geometry column", e.Dataset)
}

// NormalizeNeighborhoods keeps neighborhoods with non-nil, valid polygonal
// geometry and an in-range security score, and returns how many were dropped.
func NormalizeNeighborhoods(in []Neighborhood) ([]Neighborhood, int) {
	out := make([]Neighborhood, 0, len(in))
	for _, n := range in {
		if n.Security < MinSecurity || n.Security > MaxSecurity {
			continue
		}
		if ValidPolygonal(n.Geom) {
			out = append(out, n)
		}
	}
	return out, len(in) - len(out)
}

// DedupeNeighborhoods keeps the first neighborhood for each name and returns
// the number of later duplicates removed.
func DedupeNeighborhoods(in []Neighborhood) ([]Neighborhood, int) {
	seen := make(map[string]struct{}, len(in))
	out := make([]Neighborhood, 0, len(in))
	for _, n := range in {
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		out = append(out, n)
	}
	return out, len(in) - len(out)
}

// NormalizePoints keeps points of interest with a non-empty, finite location
// and returns how many were dropped.
func NormalizePoints[T Located](in []T) ([]T, int) {
	out := make([]T, 0, len(in))
	for _, p := range in {
		if ValidPoint(p.Location()) {
			out = append(out, p)
		}
	}
	return out, len(in) - len(out)
}

// ValidPoint reports whether p is a usable point geometry.
func ValidPoint(p *geom.Point) bool {
	if p == nil || p.Empty() {
		return false
	}
	return finite(p.X()) && finite(p.Y())
}

// ValidPolygonal reports whether g is a topologically usable polygon or
// multipolygon: closed simple rings of at least three distinct vertices,
// finite values, positive area, holes inside their shell and not crossing
// each other, and multipolygon parts that meet at points at most.
// Repeated consecutive vertices are tolerated.
func ValidPolygonal(g geom.T) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		if t == nil {
			return false
		}
		_, ok := polygonRings(t)
		return ok
	case *geom.MultiPolygon:
		if t == nil || t.NumPolygons() == 0 {
			return false
		}
		parts := make([][]ring, 0, t.NumPolygons())
		polys := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			rings, ok := polygonRings(p)
			if !ok {
				return false
			}
			for j, other := range parts {
				if ringsCross(rings[0], other[0]) ||
					rings[0].enters(func(c geom.Coord) location.Type { return locateInPolygon(polys[j], c) }) ||
					other[0].enters(func(c geom.Coord) location.Type { return locateInPolygon(p, c) }) {
					return false
				}
			}
			parts = append(parts, rings)
			polys = append(polys, p)
		}
		return true
	default:
		return false
	}
}

// polygonRings validates p and returns its cleaned rings, shell first.
func polygonRings(p *geom.Polygon) ([]ring, bool) {
	if p.NumLinearRings() == 0 {
		return nil, false
	}
	rings := make([]ring, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		r, ok := ringOf(p.LinearRing(i).FlatCoords(), p.Stride())
		if !ok || !r.simple() {
			return nil, false
		}
		rings = append(rings, r)
	}
	if p.Area() <= 0 {
		return nil, false
	}

	shell := rings[0]
	for i, hole := range rings[1:] {
		if ringsCross(hole, shell) || !hole.inside(shell) {
			return nil, false
		}
		for _, other := range rings[1 : i+1] {
			if ringsCross(hole, other) || hole.enters(other.locate) || other.enters(hole.locate) {
				return nil, false
			}
		}
	}
	return rings, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
