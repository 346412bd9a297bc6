package demand

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/tindralencia/barrio-match/internal/db"
)

const demandTable = "demand"

var demandColumns = []string{
	"neighborhood", "email", "first_name", "last_name", "intent", "request_id", "created_at",
}

// PostgresRecorder writes demand rows with COPY inside a single transaction.
type PostgresRecorder struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresRecorder creates a PostgresRecorder on an existing pool. The pool
// is owned by the caller.
func NewPostgresRecorder(pool db.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Record implements Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, requestID uuid.UUID, names []string, requester Requester, intent Intent) error {
	records, err := buildRecords(requestID, names, requester, intent, r.now())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{
			rec.Neighborhood, rec.Email, rec.FirstName, rec.LastName,
			string(rec.Intent), rec.RequestID, rec.CreatedAt,
		}
	}
	if _, err := db.CopyInTx(ctx, r.pool, demandTable, demandColumns, rows); err != nil {
		return eris.Wrap(err, "demand: record")
	}
	return nil
}

// Summary implements Recorder.
func (r *PostgresRecorder) Summary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT neighborhood, intent, count(*), max(created_at)
		FROM demand
		GROUP BY neighborhood, intent
		ORDER BY count(*) DESC, neighborhood, intent`)
	if err != nil {
		return nil, eris.Wrap(err, "demand: query summary")
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var (
			s      SummaryRow
			intent string
		)
		if err := rows.Scan(&s.Neighborhood, &intent, &s.Requests, &s.LastSeen); err != nil {
			return nil, eris.Wrap(err, "demand: scan summary row")
		}
		s.Intent = Intent(intent)
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "demand: iterate summary rows")
}

// Close implements Recorder. The shared pool is closed by its owner.
func (r *PostgresRecorder) Close() error { return nil }
