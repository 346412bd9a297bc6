package geospatial

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// WithinUnion returns the entities whose location lies within the geometric
// union of the region polygons, i.e. in its interior. A point on an edge
// shared by two regions is inside the union; a point on the outer boundary,
// or where regions meet only at a corner, is not. Input order is preserved.
// Empty input yields an empty result.
func WithinUnion[T Located](entities []T, regions []Neighborhood) []T {
	out := make([]T, 0)
	if len(entities) == 0 || len(regions) == 0 {
		return out
	}
	for _, e := range entities {
		p := e.Location()
		if !ValidPoint(p) {
			continue
		}
		c := p.Coords()
		inside, onBoundary := false, false
		for _, r := range regions {
			switch Locate(r.Geom, c) {
			case location.Interior:
				inside = true
			case location.Boundary:
				onBoundary = true
			}
			if inside {
				break
			}
		}
		if !inside && onBoundary {
			inside = surrounded(c, regions)
		}
		if inside {
			out = append(out, e)
		}
	}
	return out
}

// surrounded reports whether the regions cover every direction around c,
// for a point that lies on at least one region boundary. The edges through c
// split the plane around it into sectors; c is interior to the union when a
// point just inside each sector is covered by some region.
func surrounded(c geom.Coord, regions []Neighborhood) bool {
	var angles []float64
	for _, r := range regions {
		for _, p := range polygonParts(r.Geom) {
			if !inBounds(p.Bounds(), c) {
				continue
			}
			for i := 0; i < p.NumLinearRings(); i++ {
				angles = appendEdgeAngles(angles, p.LinearRing(i).FlatCoords(), p.Stride(), c)
			}
		}
	}
	if len(angles) == 0 {
		return false
	}
	sort.Float64s(angles)
	uniq := angles[:1]
	for _, a := range angles[1:] {
		if a != uniq[len(uniq)-1] {
			uniq = append(uniq, a)
		}
	}

	step := 1e-9 * math.Max(1, math.Max(math.Abs(c[0]), math.Abs(c[1])))
	for i, a0 := range uniq {
		a1 := uniq[0] + 2*math.Pi
		if i+1 < len(uniq) {
			a1 = uniq[i+1]
		}
		mid := (a0 + a1) / 2
		q := geom.Coord{c[0] + step*math.Cos(mid), c[1] + step*math.Sin(mid)}
		covered := false
		for _, r := range regions {
			if Locate(r.Geom, q) != location.Exterior {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// appendEdgeAngles adds the direction of every ring edge leaving c. An edge
// passing through c contributes both of its directions.
func appendEdgeAngles(angles []float64, flat []float64, stride int, c geom.Coord) []float64 {
	n := len(flat) / stride
	for i := 0; i+1 < n; i++ {
		a := geom.Coord{flat[i*stride], flat[i*stride+1]}
		b := geom.Coord{flat[(i+1)*stride], flat[(i+1)*stride+1]}
		if sameCoord(a, b) {
			continue
		}
		switch {
		case sameCoord(a, c):
			angles = append(angles, math.Atan2(b[1]-c[1], b[0]-c[0]))
		case sameCoord(b, c):
			angles = append(angles, math.Atan2(a[1]-c[1], a[0]-c[0]))
		case orientation(a, b, c) == 0 && onSegment(a, c, b):
			angles = append(angles,
				math.Atan2(a[1]-c[1], a[0]-c[0]),
				math.Atan2(b[1]-c[1], b[0]-c[0]))
		}
	}
	return angles
}

func polygonParts(g geom.T) []*geom.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		if t != nil {
			return []*geom.Polygon{t}
		}
	case *geom.MultiPolygon:
		if t != nil {
			parts := make([]*geom.Polygon, 0, t.NumPolygons())
			for i := 0; i < t.NumPolygons(); i++ {
				parts = append(parts, t.Polygon(i))
			}
			return parts
		}
	}
	return nil
}

// RegionsIntersecting returns the regions whose polygon intersects the union
// of the entity points, i.e. contains at least one of them in its interior or
// on its boundary. Input order is preserved.
func RegionsIntersecting[T Located](regions []Neighborhood, entities []T) []Neighborhood {
	out := make([]Neighborhood, 0)
	if len(entities) == 0 || len(regions) == 0 {
		return out
	}
	for _, r := range regions {
		for _, e := range entities {
			p := e.Location()
			if !ValidPoint(p) {
				continue
			}
			if Locate(r.Geom, p.Coords()) != location.Exterior {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Locate classifies a coordinate against a polygon or multipolygon.
// Anything that is not polygonal is treated as having no area.
func Locate(g geom.T, c geom.Coord) location.Type {
	switch t := g.(type) {
	case *geom.Polygon:
		if t == nil {
			return location.Exterior
		}
		return locateInPolygon(t, c)
	case *geom.MultiPolygon:
		if t == nil {
			return location.Exterior
		}
		result := location.Exterior
		for i := 0; i < t.NumPolygons(); i++ {
			switch locateInPolygon(t.Polygon(i), c) {
			case location.Interior:
				return location.Interior
			case location.Boundary:
				result = location.Boundary
			}
		}
		return result
	default:
		return location.Exterior
	}
}

func locateInPolygon(p *geom.Polygon, c geom.Coord) location.Type {
	if p.NumLinearRings() == 0 || !inBounds(p.Bounds(), c) {
		return location.Exterior
	}

	shell := xy.LocatePointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords())
	if shell != location.Interior {
		return shell
	}

	for i := 1; i < p.NumLinearRings(); i++ {
		switch xy.LocatePointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) {
		case location.Interior:
			return location.Exterior
		case location.Boundary:
			return location.Boundary
		}
	}
	return location.Interior
}

func inBounds(b *geom.Bounds, c geom.Coord) bool {
	if b == nil || b.IsEmpty() {
		return false
	}
	return c[0] >= b.Min(0) && c[0] <= b.Max(0) && c[1] >= b.Min(1) && c[1] <= b.Max(1)
}
