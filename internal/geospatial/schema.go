package geospatial

import (
	_ "embed"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Dataset names used in the schema contract.
const (
	DatasetNeighborhoods      = "neighborhoods"
	DatasetPrices             = "prices"
	DatasetTransitStops       = "transit_stops"
	DatasetEducationalCenters = "educational_centers"
	DatasetPlayAreas          = "play_areas"
)

//go:embed datasets.yaml
var defaultSchemaYAML []byte

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// DatasetSchema declares where a dataset lives and which columns carry its
// name, geometry and attributes. The store never guesses column semantics.
type DatasetSchema struct {
	Table          string            `yaml:"table"`
	NameColumn     string            `yaml:"name_column"`
	GeometryColumn string            `yaml:"geometry_column"`
	Columns        map[string]string `yaml:"columns"`
	Limit          int               `yaml:"limit"`
}

// Column returns the physical column for a logical attribute, or "".
func (d DatasetSchema) Column(attr string) string {
	return d.Columns[attr]
}

// Schema is the full dataset contract.
type Schema struct {
	Datasets map[string]DatasetSchema `yaml:"datasets"`
}

// DefaultSchema returns the built-in contract for the Valencia tables.
func DefaultSchema() (*Schema, error) {
	return ParseSchema(defaultSchemaYAML)
}

// LoadSchema reads a schema file. An empty path yields the default schema.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return DefaultSchema()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read schema %s", path)
	}
	return ParseSchema(data)
}

// ParseSchema decodes and validates a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "geo: parse schema")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every declared table and column is a plain SQL identifier.
func (s *Schema) Validate() error {
	if len(s.Datasets) == 0 {
		return eris.New("geo: schema declares no datasets")
	}
	for name, d := range s.Datasets {
		if d.Table == "" || d.NameColumn == "" {
			return eris.Errorf("geo: dataset %q needs table and name_column", name)
		}
		idents := []string{d.Table, d.NameColumn}
		if d.GeometryColumn != "" {
			idents = append(idents, d.GeometryColumn)
		}
		for _, c := range d.Columns {
			if c != "" {
				idents = append(idents, c)
			}
		}
		for _, id := range idents {
			if !identPattern.MatchString(id) {
				return eris.Errorf("geo: dataset %q: invalid identifier %q", name, id)
			}
		}
		if d.Limit < 0 {
			return eris.Errorf("geo: dataset %q: negative limit", name)
		}
	}
	return nil
}

// Dataset returns the schema for name. Geometric datasets without a declared
// geometry column yield a MissingGeometryError.
func (s *Schema) Dataset(name string) (DatasetSchema, error) {
	d, ok := s.Datasets[name]
	if !ok {
		return DatasetSchema{}, eris.Errorf("geo: dataset %q not declared in schema", name)
	}
	if name != DatasetPrices && d.GeometryColumn == "" {
		return DatasetSchema{}, &MissingGeometryError{Dataset: name}
	}
	return d, nil
}
