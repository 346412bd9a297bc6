// Package demand records which neighborhoods matched a requester's criteria.
package demand

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Intent is the transaction the requester is interested in.
type Intent string

// Supported intents.
const (
	IntentBuy  Intent = "buy"
	IntentRent Intent = "rent"
)

// ParseIntent accepts the canonical names and the Spanish form labels
// ("compra", "alquiler").
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "compra", "comprar":
		return IntentBuy, nil
	case "rent", "alquiler", "alquilar":
		return IntentRent, nil
	}
	return "", eris.Errorf("demand: unknown intent %q", s)
}

// Valid reports whether i is a supported intent.
func (i Intent) Valid() bool {
	return i == IntentBuy || i == IntentRent
}

// Requester identifies who asked for a match.
type Requester struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Record is one persisted demand row.
type Record struct {
	ID           int64     `json:"id"`
	Neighborhood string    `json:"neighborhood"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Intent       Intent    `json:"intent"`
	RequestID    uuid.UUID `json:"request_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// SummaryRow aggregates demand for one neighborhood and intent.
type SummaryRow struct {
	Neighborhood string    `json:"neighborhood"`
	Intent       Intent    `json:"intent"`
	Requests     int64     `json:"requests"`
	LastSeen     time.Time `json:"last_seen"`
}

// Recorder persists demand records. Record writes one row per name and either
// stores all of them or returns an error.
type Recorder interface {
	Record(ctx context.Context, requestID uuid.UUID, names []string, requester Requester, intent Intent) error
	Summary(ctx context.Context) ([]SummaryRow, error)
	Close() error
}

// NopRecorder discards everything. Used when recording is disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, uuid.UUID, []string, Requester, Intent) error {
	return nil
}

// Summary implements Recorder.
func (NopRecorder) Summary(context.Context) ([]SummaryRow, error) { return nil, nil }

// Close implements Recorder.
func (NopRecorder) Close() error { return nil }

// buildRecords expands names into rows sharing one request id and timestamp.
func buildRecords(requestID uuid.UUID, names []string, requester Requester, intent Intent, now time.Time) ([]Record, error) {
	if !intent.Valid() {
		return nil, eris.Errorf("demand: invalid intent %q", intent)
	}
	out := make([]Record, 0, len(names))
	for _, name := range names {
		out = append(out, Record{
			Neighborhood: name,
			Email:        requester.Email,
			FirstName:    requester.FirstName,
			LastName:     requester.LastName,
			Intent:       intent,
			RequestID:    requestID,
			CreatedAt:    now,
		})
	}
	return out, nil
}
