package geospatial

import (
	"github.com/twpayne/go-geom"
)

func square(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}},
	})
}

func pt(x, y float64) *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y})
}

func hood(name string, security int, g geom.T) Neighborhood {
	return Neighborhood{Name: name, Security: security, Geom: g}
}

func stop(name string, x, y float64) TransitStop {
	return TransitStop{Name: name, Geom: pt(x, y)}
}
