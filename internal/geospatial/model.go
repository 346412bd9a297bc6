package geospatial

import (
	"github.com/twpayne/go-geom"
)

// Security score bounds. Higher is safer.
const (
	MinSecurity = 0
	MaxSecurity = 3
)

// Neighborhood is a named polygonal region of the city.
type Neighborhood struct {
	Name     string `json:"name"`
	Security int    `json:"security"`
	// Geom is a *geom.Polygon or *geom.MultiPolygon in lon/lat (SRID 4326).
	Geom geom.T `json:"-"`
}

// PriceRecord holds the reference price and pre-computed price tier for a neighborhood.
type PriceRecord struct {
	Neighborhood   string  `json:"neighborhood"`
	ReferencePrice float64 `json:"reference_price"`
	Category       int     `json:"category"`
}

// Point-of-interest categories.
const (
	CategoryTransit   = "transit_stop"
	CategoryEducation = "educational_center"
	CategoryPlayArea  = "play_area"
)

// Located is implemented by every point of interest.
type Located interface {
	Location() *geom.Point
	Category() string
	DisplayName() string
}

// TransitStop is a metro stop.
type TransitStop struct {
	Name string      `json:"name"`
	Geom *geom.Point `json:"-"`
}

// Location implements Located.
func (s TransitStop) Location() *geom.Point { return s.Geom }

// Category implements Located.
func (s TransitStop) Category() string { return CategoryTransit }

// DisplayName implements Located.
func (s TransitStop) DisplayName() string { return s.Name }

// EducationalCenter is a school. Contact fields are carried for display only.
type EducationalCenter struct {
	Name         string      `json:"name"`
	Regime       string      `json:"regime"`
	Address      string      `json:"address,omitempty"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	GenericKind  string      `json:"generic_kind,omitempty"`
	SpecificKind string      `json:"specific_kind,omitempty"`
	Geom         *geom.Point `json:"-"`
}

// Location implements Located.
func (c EducationalCenter) Location() *geom.Point { return c.Geom }

// Category implements Located.
func (c EducationalCenter) Category() string { return CategoryEducation }

// DisplayName implements Located.
func (c EducationalCenter) DisplayName() string { return c.Name }

// PlayArea is a children's play area inside a garden or park.
type PlayArea struct {
	Name string      `json:"name"`
	Geom *geom.Point `json:"-"`
}

// Location implements Located.
func (p PlayArea) Location() *geom.Point { return p.Geom }

// Category implements Located.
func (p PlayArea) Category() string { return CategoryPlayArea }

// DisplayName implements Located.
func (p PlayArea) DisplayName() string { return p.Name }
