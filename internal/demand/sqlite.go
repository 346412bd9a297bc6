package demand

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder stores demand in a local SQLite file. Used for single-node
// deployments and development without Postgres.
type SQLiteRecorder struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRecorder opens the database at dsn, configures WAL mode and creates
// the demand table if needed.
func NewSQLiteRecorder(ctx context.Context, dsn string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "demand: sqlite open")
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "demand: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "demand: sqlite migrate")
	}
	return &SQLiteRecorder{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS demand (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	neighborhood TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	intent       TEXT NOT NULL CHECK (intent IN ('buy', 'rent')),
	request_id   TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_demand_neighborhood ON demand(neighborhood);
CREATE INDEX IF NOT EXISTS idx_demand_request_id ON demand(request_id);
`

// Record implements Recorder.
func (r *SQLiteRecorder) Record(ctx context.Context, requestID uuid.UUID, names []string, requester Requester, intent Intent) error {
	records, err := buildRecords(requestID, names, requester, intent, r.now())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "demand: sqlite begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO demand (neighborhood, email, first_name, last_name, intent, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "demand: sqlite prepare insert")
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Neighborhood, rec.Email, rec.FirstName, rec.LastName,
			string(rec.Intent), rec.RequestID.String(), rec.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "demand: sqlite insert %s", rec.Neighborhood)
		}
	}
	return eris.Wrap(tx.Commit(), "demand: sqlite commit")
}

// Summary implements Recorder.
func (r *SQLiteRecorder) Summary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT neighborhood, intent, count(*), max(created_at)
		FROM demand
		GROUP BY neighborhood, intent
		ORDER BY count(*) DESC, neighborhood, intent`)
	if err != nil {
		return nil, eris.Wrap(err, "demand: sqlite query summary")
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var (
			s        SummaryRow
			intent   string
			lastSeen string
		)
		if err := rows.Scan(&s.Neighborhood, &intent, &s.Requests, &lastSeen); err != nil {
			return nil, eris.Wrap(err, "demand: sqlite scan summary row")
		}
		s.Intent = Intent(intent)
		s.LastSeen = parseSQLiteTime(lastSeen)
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "demand: sqlite iterate summary rows")
}

// Close implements Recorder.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

// parseSQLiteTime reads aggregate timestamps, which SQLite returns as text.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
