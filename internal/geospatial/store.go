package geospatial

import "context"

// Store reads the base datasets. Implementations return raw records; geometry
// validation happens in the normalizer.
type Store interface {
	// Neighborhoods returns every neighborhood with its security score.
	Neighborhoods(ctx context.Context) ([]Neighborhood, error)

	// PriceRecords returns the pre-computed price tier per neighborhood name.
	PriceRecords(ctx context.Context) ([]PriceRecord, error)

	// TransitStops returns metro stops.
	TransitStops(ctx context.Context) ([]TransitStop, error)

	// EducationalCenters returns schools with their regime label as stored.
	EducationalCenters(ctx context.Context) ([]EducationalCenter, error)

	// PlayAreas returns children's play areas.
	PlayAreas(ctx context.Context) ([]PlayArea, error)
}
