package geospatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestValidPolygonal(t *testing.T) {
	bowtie := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}},
	})
	unclosed := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	})
	flat := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {2, 0}, {0, 0}},
	})
	nan := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {math.NaN(), 0}, {1, 1}, {0, 0}},
	})
	withHole := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {1, 2}, {2, 2}, {2, 1}, {1, 1}},
	})
	multi := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{{{2, 2}, {3, 2}, {3, 3}, {2, 3}, {2, 2}}},
	})
	repeated := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
	})
	repeatedClose := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}, {0, 0}},
	})
	spike := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {2, 0}, {3, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}},
	})
	holeOutside := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}},
	})
	holeCrossing := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{3, 1}, {3, 2}, {5, 2}, {5, 1}, {3, 1}},
	})
	holesOverlapping := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {6, 0}, {6, 6}, {0, 6}, {0, 0}},
		{{1, 1}, {1, 3}, {3, 3}, {3, 1}, {1, 1}},
		{{2, 2}, {2, 4}, {4, 4}, {4, 2}, {2, 2}},
	})
	holeTouchingShell := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{0, 2}, {2, 3}, {2, 1}, {0, 2}},
	})
	sharedEdgeParts := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}},
	})
	cornerParts := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}}},
	})
	overlappingParts := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		{{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}}},
	})
	islandInHole := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{
			{{0, 0}, {6, 0}, {6, 6}, {0, 6}, {0, 0}},
			{{1, 1}, {1, 5}, {5, 5}, {5, 1}, {1, 1}},
		},
		{{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}},
	})
	var nilPoly *geom.Polygon

	tests := []struct {
		name string
		g    geom.T
		want bool
	}{
		{"square", square(0, 0, 1, 1), true},
		{"with hole", withHole, true},
		{"multipolygon", multi, true},
		{"repeated vertex", repeated, true},
		{"repeated closing vertex", repeatedClose, true},
		{"hole touching shell at a point", holeTouchingShell, true},
		{"parts touching at a corner", cornerParts, true},
		{"part inside a hole", islandInHole, true},
		{"bowtie", bowtie, false},
		{"spike", spike, false},
		{"hole outside shell", holeOutside, false},
		{"hole crossing shell", holeCrossing, false},
		{"overlapping holes", holesOverlapping, false},
		{"parts sharing an edge", sharedEdgeParts, false},
		{"overlapping parts", overlappingParts, false},
		{"unclosed", unclosed, false},
		{"zero area", flat, false},
		{"nan coordinate", nan, false},
		{"nil interface", nil, false},
		{"typed nil", nilPoly, false},
		{"empty multipolygon", geom.NewMultiPolygon(geom.XY), false},
		{"point", pt(0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPolygonal(tt.g))
		})
	}
}

func TestNormalizeNeighborhoods_DropsInvalid(t *testing.T) {
	in := []Neighborhood{
		hood("Russafa", 2, square(0, 0, 1, 1)),
		hood("Sin geometria", 3, nil),
		hood("Bowtie", 1, geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}},
		})),
		hood("El Carme", 1, square(1, 0, 2, 1)),
	}
	out, dropped := NormalizeNeighborhoods(in)
	assert.Equal(t, 2, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, "Russafa", out[0].Name)
	assert.Equal(t, "El Carme", out[1].Name)
}

func TestNormalizeNeighborhoods_KeepsRepeatedVertex(t *testing.T) {
	in := []Neighborhood{
		hood("Benimaclet", 2, geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
			{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
		})),
	}
	out, dropped := NormalizeNeighborhoods(in)
	assert.Equal(t, 0, dropped)
	require.Len(t, out, 1)
	assert.Equal(t, "Benimaclet", out[0].Name)
}

func TestDedupeNeighborhoods_FirstWins(t *testing.T) {
	in := []Neighborhood{
		hood("Russafa", 2, square(0, 0, 1, 1)),
		hood("Russafa", 0, square(5, 5, 6, 6)),
		hood("Benimaclet", 1, square(1, 0, 2, 1)),
	}
	out, dupes := DedupeNeighborhoods(in)
	assert.Equal(t, 1, dupes)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].Security)
}

func TestNormalizePoints(t *testing.T) {
	in := []TransitStop{
		stop("Colon", 0.5, 0.5),
		{Name: "No geom"},
		{Name: "Empty", Geom: geom.NewPoint(geom.XY)},
		stop("Inf", math.Inf(1), 0),
	}
	out, dropped := NormalizePoints(in)
	assert.Equal(t, 3, dropped)
	require.Len(t, out, 1)
	assert.Equal(t, "Colon", out[0].Name)
}

func TestMissingGeometryError(t *testing.T) {
	err := &MissingGeometryError{Dataset: "precios_barrios"}
	assert.Contains(t, err.Error(), "precios_barrios")
}

func TestNormalizeNeighborhoods_SecurityOutOfRange(t *testing.T) {
	in := []Neighborhood{
		hood("ok", 3, square(0, 0, 1, 1)),
		hood("unparsed", -1, square(1, 0, 2, 1)),
		hood("too high", 4, square(2, 0, 3, 1)),
	}
	out, dropped := NormalizeNeighborhoods(in)
	assert.Equal(t, 2, dropped)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Name)
}
