package geospatial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema(t *testing.T) {
	s, err := DefaultSchema()
	require.NoError(t, err)

	for _, name := range []string{
		DatasetNeighborhoods, DatasetPrices, DatasetTransitStops,
		DatasetEducationalCenters, DatasetPlayAreas,
	} {
		_, err := s.Dataset(name)
		assert.NoError(t, err, name)
	}

	d, err := s.Dataset(DatasetNeighborhoods)
	require.NoError(t, err)
	assert.Equal(t, "barrios_valencia", d.Table)
	assert.Equal(t, "criminalidad", d.Column("security"))
	assert.Equal(t, "", d.Column("unknown"))
}

func TestSchema_UnknownDataset(t *testing.T) {
	s, err := DefaultSchema()
	require.NoError(t, err)
	_, err = s.Dataset("bike_stations")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")
}

func TestParseSchema_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", `datasets: {}`, "no datasets"},
		{"missing table", "datasets:\n  prices:\n    name_column: barrio\n", "needs table"},
		{"injection", "datasets:\n  prices:\n    table: \"x; DROP TABLE y\"\n    name_column: barrio\n", "invalid identifier"},
		{"negative limit", "datasets:\n  prices:\n    table: p\n    name_column: b\n    limit: -1\n", "negative limit"},
		{"bad yaml", "datasets: [", "parse schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSchema_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datasets:
  neighborhoods:
    table: geo.barrios
    name_column: nombre
    geometry_column: geom
    limit: 500
`), 0o600))

	s, err := LoadSchema(path)
	require.NoError(t, err)
	d, err := s.Dataset(DatasetNeighborhoods)
	require.NoError(t, err)
	assert.Equal(t, "geo.barrios", d.Table)
	assert.Equal(t, 500, d.Limit)
}

func TestLoadSchema_EmptyPathUsesDefault(t *testing.T) {
	s, err := LoadSchema("")
	require.NoError(t, err)
	assert.Len(t, s.Datasets, 5)
}

func TestLoadSchema_MissingFile(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema")
}
