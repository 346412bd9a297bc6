package geospatial

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// ring is a closed linear ring with repeated consecutive vertices removed.
// The closing vertex is implied and not stored.
type ring []geom.Coord

// ringOf cleans a flat closed ring. It fails on fewer than four stored
// coordinates, non-finite values, an open ring or fewer than three distinct
// vertices.
func ringOf(flat []float64, stride int) (ring, bool) {
	if stride < 2 {
		return nil, false
	}
	n := len(flat) / stride
	if n < 4 {
		return nil, false
	}
	for i := 0; i < n; i++ {
		if !finite(flat[i*stride]) || !finite(flat[i*stride+1]) {
			return nil, false
		}
	}
	last := (n - 1) * stride
	if flat[0] != flat[last] || flat[1] != flat[last+1] {
		return nil, false
	}

	r := make(ring, 0, n-1)
	for i := 0; i < n-1; i++ {
		c := geom.Coord{flat[i*stride], flat[i*stride+1]}
		if len(r) > 0 && sameCoord(r[len(r)-1], c) {
			continue
		}
		r = append(r, c)
	}
	for len(r) > 1 && sameCoord(r[len(r)-1], r[0]) {
		r = r[:len(r)-1]
	}
	return r, len(r) >= 3
}

func (r ring) segment(i int) (geom.Coord, geom.Coord) {
	return r[i], r[(i+1)%len(r)]
}

func (r ring) flat() []float64 {
	out := make([]float64, 0, 2*(len(r)+1))
	for _, c := range r {
		out = append(out, c[0], c[1])
	}
	return append(out, r[0][0], r[0][1])
}

func (r ring) locate(c geom.Coord) location.Type {
	return xy.LocatePointInRing(geom.XY, c, r.flat())
}

// simple reports whether no two edges of r meet except neighbours at their
// shared vertex.
func (r ring) simple() bool {
	n := len(r)
	for i := 0; i < n; i++ {
		a, b := r.segment(i)
		for j := i + 1; j < n; j++ {
			c, d := r.segment(j)
			switch {
			case j == i+1:
				// b == c; the edges fold back onto each other only when collinear.
				if orientation(a, b, d) == 0 && (onSegment(a, d, b) || onSegment(c, a, d)) {
					return false
				}
			case i == 0 && j == n-1:
				// d == a.
				if orientation(c, d, b) == 0 && (onSegment(c, b, d) || onSegment(a, c, b)) {
					return false
				}
			default:
				if segmentsIntersect(a, b, c, d) {
					return false
				}
			}
		}
	}
	return true
}

// inside reports whether r lies within outer: every vertex and edge midpoint
// is interior to or on outer, and at least one is strictly interior.
func (r ring) inside(outer ring) bool {
	interior := false
	for _, c := range r.samples() {
		switch outer.locate(c) {
		case location.Exterior:
			return false
		case location.Interior:
			interior = true
		}
	}
	return interior
}

// enters reports whether any vertex or edge midpoint of r is strictly
// interior to the area classified by locate.
func (r ring) enters(locate func(geom.Coord) location.Type) bool {
	for _, c := range r.samples() {
		if locate(c) == location.Interior {
			return true
		}
	}
	return false
}

func (r ring) samples() []geom.Coord {
	out := make([]geom.Coord, 0, 2*len(r))
	for i := range r {
		a, b := r.segment(i)
		out = append(out, a, geom.Coord{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2})
	}
	return out
}

// ringsCross reports whether two rings cross each other or share an edge
// section of positive length. Touching at isolated points is allowed.
func ringsCross(r, s ring) bool {
	for i := range r {
		a, b := r.segment(i)
		for j := range s {
			c, d := s.segment(j)
			if segmentsCross(a, b, c, d) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect reports whether closed segments a-b and c-d share any point.
func segmentsIntersect(a, b, c, d geom.Coord) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(a, c, b):
		return true
	case o2 == 0 && onSegment(a, d, b):
		return true
	case o3 == 0 && onSegment(c, a, d):
		return true
	case o4 == 0 && onSegment(c, b, d):
		return true
	}
	return false
}

// segmentsCross reports a proper crossing or a collinear overlap of
// positive length.
func segmentsCross(a, b, c, d geom.Coord) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 {
		return o1 != o2 && o3 != o4
	}
	if o1 == 0 && o2 == 0 {
		return collinearOverlap(a, b, c, d) > 0
	}
	return false
}

// collinearOverlap returns the length of the shared part of two collinear
// segments, measured along their dominant axis.
func collinearOverlap(a, b, c, d geom.Coord) float64 {
	axis := 0
	if math.Abs(b[1]-a[1]) > math.Abs(b[0]-a[0]) {
		axis = 1
	}
	lo := math.Max(math.Min(a[axis], b[axis]), math.Min(c[axis], d[axis]))
	hi := math.Min(math.Max(a[axis], b[axis]), math.Max(c[axis], d[axis]))
	return hi - lo
}

func orientation(a, b, c geom.Coord) int {
	v := (b[1]-a[1])*(c[0]-b[0]) - (b[0]-a[0])*(c[1]-b[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether q lies within the bounding box of segment p-r.
func onSegment(p, q, r geom.Coord) bool {
	return q[0] <= math.Max(p[0], r[0]) && q[0] >= math.Min(p[0], r[0]) &&
		q[1] <= math.Max(p[1], r[1]) && q[1] >= math.Min(p[1], r[1])
}

func sameCoord(a, b geom.Coord) bool {
	return a[0] == b[0] && a[1] == b[1]
}
