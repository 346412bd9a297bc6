package matcher

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tindralencia/barrio-match/internal/demand"
)

func TestParsePriceCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    PriceCategory
		wantErr bool
	}{
		{"", PriceAny, false},
		{"any", PriceAny, false},
		{"ANY", PriceAny, false},
		{"1", PriceLow, false},
		{" 3 ", PriceTop, false},
		{"0", PriceAny, true},
		{"4", PriceAny, true},
		{"cheap", PriceAny, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriceCategory(tt.in)
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "price_category", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceCategory_JSON(t *testing.T) {
	var req FilterRequest
	require.NoError(t, json.Unmarshal([]byte(`{"price_category":"any","intent":"rent"}`), &req))
	assert.Equal(t, PriceAny, req.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price_category":2}`), &req))
	assert.Equal(t, PriceMid, req.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price_category":"3"}`), &req))
	assert.Equal(t, PriceTop, req.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price_category":null}`), &req))
	assert.Equal(t, PriceAny, req.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price_category":7}`), &req))

	out, err := json.Marshal(struct {
		A PriceCategory `json:"a"`
		B PriceCategory `json:"b"`
	}{PriceAny, PriceLow})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"any","b":1}`, string(out))
}

func TestPriceCategory_Label(t *testing.T) {
	assert.Equal(t, "600-800 €/month", PriceLow.Label(demand.IntentRent))
	assert.Equal(t, ">1100 €/month", PriceTop.Label(demand.IntentRent))
	assert.Equal(t, "200k-300k €", PriceMid.Label(demand.IntentBuy))
	assert.Equal(t, "any", PriceAny.Label(demand.IntentBuy))
	assert.Equal(t, "2", PriceMid.Label(demand.Intent("lease")))
}

func TestPriceOptions(t *testing.T) {
	opts := PriceOptions(demand.IntentBuy)
	require.Len(t, opts, 4)
	assert.Equal(t, PriceAny, opts[0].Category)
	assert.Equal(t, ">300k €", opts[3].Label)
}

func TestCanonicalRegime(t *testing.T) {
	tests := map[string]string{
		"Público":     RegimePublic,
		"publico":     RegimePublic,
		"PUBLIC":      RegimePublic,
		"Concertado":  RegimeSubsidized,
		"subsidized":  RegimeSubsidized,
		" Privado ":   RegimePrivate,
		"private":     RegimePrivate,
		"Cooperativa": "cooperativa",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalRegime(in), in)
	}
}

func TestFilterRequest_Validate(t *testing.T) {
	valid := FilterRequest{
		MinSecurity:   2,
		Price:         PriceMid,
		SchoolRegimes: []string{"Público", "private"},
		Intent:        demand.IntentBuy,
		Requester:     demand.Requester{Email: "ana@example.com"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		mut   func(*FilterRequest)
		field string
	}{
		{"security low", func(r *FilterRequest) { r.MinSecurity = -1 }, "min_security"},
		{"security high", func(r *FilterRequest) { r.MinSecurity = 4 }, "min_security"},
		{"price", func(r *FilterRequest) { r.Price = 5 }, "price_category"},
		{"regime", func(r *FilterRequest) { r.SchoolRegimes = []string{"boarding"} }, "school_regimes"},
		{"intent", func(r *FilterRequest) { r.Intent = "" }, "intent"},
		{"email", func(r *FilterRequest) { r.Requester.Email = "not-an-email" }, "requester.email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.SchoolRegimes = append([]string(nil), valid.SchoolRegimes...)
			tt.mut(&req)

			err := req.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestFilterRequest_ShowTransitForcedByRequirement(t *testing.T) {
	assert.False(t, FilterRequest{}.showTransit())
	assert.True(t, FilterRequest{ShowTransit: true}.showTransit())
	assert.True(t, FilterRequest{RequireTransit: true}.showTransit())
}

func TestFilterRequest_RegimeSet(t *testing.T) {
	set := FilterRequest{SchoolRegimes: []string{"Público", "public", "concertado"}}.regimeSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, RegimePublic)
	assert.Contains(t, set, RegimeSubsidized)
}

func TestFilterRequest_ValidateRequester(t *testing.T) {
	full := demand.Requester{Email: "ana@example.com", FirstName: "Ana", LastName: "Puig"}
	assert.NoError(t, FilterRequest{Requester: full}.validateRequester())

	var ve *ValidationError
	err := FilterRequest{}.validateRequester()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "requester.email", ve.Field)

	noLast := full
	noLast.LastName = "  "
	err = FilterRequest{Requester: noLast}.validateRequester()
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "requester.last_name", ve.Field)
}
