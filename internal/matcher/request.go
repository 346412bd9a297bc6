package matcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/geospatial"
	"github.com/tindralencia/barrio-match/internal/textnorm"
)

// PriceCategory is a pre-computed price tier. PriceAny disables the price step.
type PriceCategory int

// Price tiers, cheapest first.
const (
	PriceAny PriceCategory = 0
	PriceLow PriceCategory = 1
	PriceMid PriceCategory = 2
	PriceTop PriceCategory = 3
)

// ParsePriceCategory accepts "any", "" or a tier number.
func ParsePriceCategory(s string) (PriceCategory, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "any" {
		return PriceAny, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(PriceLow) || n > int(PriceTop) {
		return PriceAny, &ValidationError{Field: "price_category", Reason: fmt.Sprintf("unknown price category %q", s)}
	}
	return PriceCategory(n), nil
}

// String returns "any" or the tier number.
func (p PriceCategory) String() string {
	if p == PriceAny {
		return "any"
	}
	return strconv.Itoa(int(p))
}

// MarshalJSON encodes PriceAny as "any" and tiers as numbers.
func (p PriceCategory) MarshalJSON() ([]byte, error) {
	if p == PriceAny {
		return []byte(`"any"`), nil
	}
	return []byte(strconv.Itoa(int(p))), nil
}

// UnmarshalJSON accepts a number, a numeric string or "any".
func (p *PriceCategory) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = PriceAny
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := ParsePriceCategory(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

var priceLabels = map[demand.Intent][4]string{
	demand.IntentRent: {"any", "600-800 €/month", "800-1100 €/month", ">1100 €/month"},
	demand.IntentBuy:  {"any", "150k-200k €", "200k-300k €", ">300k €"},
}

// Label returns the human-readable price band for the intent.
func (p PriceCategory) Label(intent demand.Intent) string {
	labels, ok := priceLabels[intent]
	if !ok || p < PriceAny || p > PriceTop {
		return p.String()
	}
	return labels[p]
}

// PriceOption pairs a tier with its label.
type PriceOption struct {
	Category PriceCategory `json:"category"`
	Label    string        `json:"label"`
}

// PriceOptions lists every selectable price band for an intent, "any" first.
func PriceOptions(intent demand.Intent) []PriceOption {
	out := make([]PriceOption, 0, 4)
	for p := PriceAny; p <= PriceTop; p++ {
		out = append(out, PriceOption{Category: p, Label: p.Label(intent)})
	}
	return out
}

// Canonical school regimes.
const (
	RegimePublic     = "public"
	RegimeSubsidized = "subsidized"
	RegimePrivate    = "private"
)

// regimeAliases maps normalized stored labels to canonical regimes.
var regimeAliases = map[string]string{
	"public":     RegimePublic,
	"publico":    RegimePublic,
	"subsidized": RegimeSubsidized,
	"concertado": RegimeSubsidized,
	"private":    RegimePrivate,
	"privado":    RegimePrivate,
}

// CanonicalRegime normalizes a regime label. Unknown labels come back
// normalized but otherwise unchanged.
func CanonicalRegime(s string) string {
	n := textnorm.Normalize(s)
	if c, ok := regimeAliases[n]; ok {
		return c
	}
	return n
}

// FilterRequest is the input to one matching run. It is treated as immutable
// once handed to the service.
type FilterRequest struct {
	MinSecurity     int              `json:"min_security"`
	Price           PriceCategory    `json:"price_category"`
	RequireTransit  bool             `json:"require_transit"`
	ShowTransit     bool             `json:"show_transit"`
	SchoolRegimes   []string         `json:"school_regimes,omitempty"`
	RequirePlayArea bool             `json:"require_play_area"`
	Intent          demand.Intent    `json:"intent"`
	Requester       demand.Requester `json:"requester"`
}

// Validate rejects out-of-range or unknown values.
func (r FilterRequest) Validate() error {
	if r.MinSecurity < geospatial.MinSecurity || r.MinSecurity > geospatial.MaxSecurity {
		return &ValidationError{Field: "min_security", Reason: fmt.Sprintf("must be between %d and %d", geospatial.MinSecurity, geospatial.MaxSecurity)}
	}
	if r.Price < PriceAny || r.Price > PriceTop {
		return &ValidationError{Field: "price_category", Reason: "must be any, 1, 2 or 3"}
	}
	for _, s := range r.SchoolRegimes {
		switch CanonicalRegime(s) {
		case RegimePublic, RegimeSubsidized, RegimePrivate:
		default:
			return &ValidationError{Field: "school_regimes", Reason: fmt.Sprintf("unknown regime %q", s)}
		}
	}
	if !r.Intent.Valid() {
		return &ValidationError{Field: "intent", Reason: "must be buy or rent"}
	}
	if r.Requester.Email != "" {
		if _, err := mail.ParseAddress(r.Requester.Email); err != nil {
			return &ValidationError{Field: "requester.email", Reason: "invalid address"}
		}
	}
	return nil
}

// validateRequester requires the identity stored with every demand row.
func (r FilterRequest) validateRequester() error {
	switch {
	case strings.TrimSpace(r.Requester.Email) == "":
		return &ValidationError{Field: "requester.email", Reason: "required"}
	case strings.TrimSpace(r.Requester.FirstName) == "":
		return &ValidationError{Field: "requester.first_name", Reason: "required"}
	case strings.TrimSpace(r.Requester.LastName) == "":
		return &ValidationError{Field: "requester.last_name", Reason: "required"}
	}
	return nil
}

// showTransit reports whether transit stops belong in the display set.
// Requiring transit always shows the stops that satisfied it.
func (r FilterRequest) showTransit() bool {
	return r.ShowTransit || r.RequireTransit
}

// regimeSet returns the canonical regimes requested.
func (r FilterRequest) regimeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.SchoolRegimes))
	for _, s := range r.SchoolRegimes {
		if c := CanonicalRegime(s); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}
