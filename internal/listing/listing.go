// Package listing stores properties offered for sale or rent and derives the
// gross rental yield per neighborhood from them.
package listing

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tindralencia/barrio-match/internal/textnorm"
)

// Operation is what the owner offers the property for.
type Operation string

const (
	OperationSale Operation = "sale"
	OperationRent Operation = "rent"
)

var operationAliases = map[string]Operation{
	"sale":     OperationSale,
	"venta":    OperationSale,
	"rent":     OperationRent,
	"alquiler": OperationRent,
}

// ParseOperation accepts the canonical names and the Spanish form labels.
func ParseOperation(s string) (Operation, error) {
	if op, ok := operationAliases[textnorm.Normalize(s)]; ok {
		return op, nil
	}
	return "", &ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", s)}
}

// Listing is one property offered by its owner.
type Listing struct {
	ID           int64     `json:"id"`
	Operation    Operation `json:"operation"`
	Neighborhood string    `json:"neighborhood"`
	Address      string    `json:"address"`
	StreetNumber string    `json:"street_number,omitempty"`
	AreaM2       float64   `json:"area_m2"`
	Rooms        int       `json:"rooms"`
	Bathrooms    int       `json:"bathrooms"`
	Extras       string    `json:"extras,omitempty"`
	Elevator     bool      `json:"elevator"`
	Parking      bool      `json:"parking"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidationError reports a listing field that cannot be stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "listing: invalid " + e.Field + ": " + e.Reason
}

// Normalize validates l and returns it with canonical operation and trimmed text.
func (l Listing) Normalize() (Listing, error) {
	op, err := ParseOperation(string(l.Operation))
	if err != nil {
		return Listing{}, err
	}
	l.Operation = op
	l.Neighborhood = strings.TrimSpace(l.Neighborhood)
	l.Address = strings.TrimSpace(l.Address)
	l.StreetNumber = strings.TrimSpace(l.StreetNumber)
	l.Extras = strings.TrimSpace(l.Extras)

	switch {
	case l.Neighborhood == "":
		return Listing{}, &ValidationError{Field: "neighborhood", Reason: "required"}
	case !nonNegative(l.AreaM2):
		return Listing{}, &ValidationError{Field: "area_m2", Reason: "must be a non-negative number"}
	case l.Rooms < 0:
		return Listing{}, &ValidationError{Field: "rooms", Reason: "must be >= 0"}
	case l.Bathrooms < 0:
		return Listing{}, &ValidationError{Field: "bathrooms", Reason: "must be >= 0"}
	case !nonNegative(l.Price) || l.Price == 0:
		return Listing{}, &ValidationError{Field: "price", Reason: "must be a positive number"}
	}
	return l, nil
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Filter selects comparable properties for the yield estimate. Every field
// must match exactly.
type Filter struct {
	Rooms     int  `json:"rooms"`
	Bathrooms int  `json:"bathrooms"`
	Elevator  bool `json:"elevator"`
	Parking   bool `json:"parking"`
}

// Validate checks the filter bounds.
func (f Filter) Validate() error {
	if f.Rooms < 0 {
		return &ValidationError{Field: "rooms", Reason: "must be >= 0"}
	}
	if f.Bathrooms < 0 {
		return &ValidationError{Field: "bathrooms", Reason: "must be >= 0"}
	}
	return nil
}

// YieldRow is the gross rental yield of one neighborhood.
type YieldRow struct {
	Neighborhood string  `json:"neighborhood"`
	MonthlyRent  float64 `json:"monthly_rent"`
	SalePrice    float64 `json:"sale_price"`
	AnnualRent   float64 `json:"annual_rent"`
	YieldPct     float64 `json:"yield_pct"`
}

// Yield joins average monthly rents with average sale prices by neighborhood
// and returns annual rent over sale price as a percentage, highest first.
// Neighborhoods missing either side, or with a non-positive sale price, are
// left out.
func Yield(rents, sales map[string]float64) []YieldRow {
	out := make([]YieldRow, 0, len(rents))
	for name, rent := range rents {
		sale, ok := sales[name]
		if !ok || sale <= 0 {
			continue
		}
		annual := rent * 12
		out = append(out, YieldRow{
			Neighborhood: name,
			MonthlyRent:  rent,
			SalePrice:    sale,
			AnnualRent:   annual,
			YieldPct:     annual / sale * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].YieldPct != out[j].YieldPct {
			return out[i].YieldPct > out[j].YieldPct
		}
		return out[i].Neighborhood < out[j].Neighborhood
	})
	return out
}
