package geospatial

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/db"
)

// PostgresStore implements Store against PostGIS tables described by a Schema.
type PostgresStore struct {
	pool   db.Pool
	schema *Schema
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool, schema *Schema) *PostgresStore {
	return &PostgresStore{pool: pool, schema: schema}
}

// Neighborhoods implements Store.
func (s *PostgresStore) Neighborhoods(ctx context.Context) ([]Neighborhood, error) {
	d, err := s.schema.Dataset(DatasetNeighborhoods)
	if err != nil {
		return nil, err
	}
	sql := selectSQL(d, textCol(d.NameColumn), textCol(d.Column("security")), geomCol(d.GeometryColumn))

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "geo: query neighborhoods")
	}
	defer rows.Close()

	var out []Neighborhood
	for rows.Next() {
		var (
			name, security string
			raw            []byte
		)
		if err := rows.Scan(&name, &security, &raw); err != nil {
			return nil, eris.Wrap(err, "geo: scan neighborhood row")
		}
		out = append(out, Neighborhood{
			Name:     name,
			Security: parseSecurity(security),
			Geom:     decodeGeometry(DatasetNeighborhoods, raw),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate neighborhood rows")
	}
	return out, nil
}

// PriceRecords implements Store.
func (s *PostgresStore) PriceRecords(ctx context.Context) ([]PriceRecord, error) {
	d, err := s.schema.Dataset(DatasetPrices)
	if err != nil {
		return nil, err
	}
	sql := selectSQL(d,
		textCol(d.NameColumn),
		numericCol(d.Column("reference_price"), "float8"),
		numericCol(d.Column("category"), "int"),
	)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "geo: query price records")
	}
	defer rows.Close()

	var out []PriceRecord
	for rows.Next() {
		var p PriceRecord
		if err := rows.Scan(&p.Neighborhood, &p.ReferencePrice, &p.Category); err != nil {
			return nil, eris.Wrap(err, "geo: scan price row")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate price rows")
	}
	return out, nil
}

// TransitStops implements Store.
func (s *PostgresStore) TransitStops(ctx context.Context) ([]TransitStop, error) {
	d, err := s.schema.Dataset(DatasetTransitStops)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, selectSQL(d, textCol(d.NameColumn), geomCol(d.GeometryColumn)))
	if err != nil {
		return nil, eris.Wrap(err, "geo: query transit stops")
	}
	defer rows.Close()

	var out []TransitStop
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, eris.Wrap(err, "geo: scan transit stop row")
		}
		out = append(out, TransitStop{Name: name, Geom: decodePoint(DatasetTransitStops, raw)})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate transit stop rows")
	}
	return out, nil
}

// EducationalCenters implements Store.
func (s *PostgresStore) EducationalCenters(ctx context.Context) ([]EducationalCenter, error) {
	d, err := s.schema.Dataset(DatasetEducationalCenters)
	if err != nil {
		return nil, err
	}
	sql := selectSQL(d,
		textCol(d.NameColumn),
		textCol(d.Column("regime")),
		textCol(d.Column("address")),
		textCol(d.Column("email")),
		textCol(d.Column("phone")),
		textCol(d.Column("generic_kind")),
		textCol(d.Column("specific_kind")),
		geomCol(d.GeometryColumn),
	)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "geo: query educational centers")
	}
	defer rows.Close()

	var out []EducationalCenter
	for rows.Next() {
		var (
			c   EducationalCenter
			raw []byte
		)
		if err := rows.Scan(&c.Name, &c.Regime, &c.Address, &c.Email, &c.Phone,
			&c.GenericKind, &c.SpecificKind, &raw); err != nil {
			return nil, eris.Wrap(err, "geo: scan educational center row")
		}
		c.Geom = decodePoint(DatasetEducationalCenters, raw)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate educational center rows")
	}
	return out, nil
}

// PlayAreas implements Store.
func (s *PostgresStore) PlayAreas(ctx context.Context) ([]PlayArea, error) {
	d, err := s.schema.Dataset(DatasetPlayAreas)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, selectSQL(d, textCol(d.NameColumn), geomCol(d.GeometryColumn)))
	if err != nil {
		return nil, eris.Wrap(err, "geo: query play areas")
	}
	defer rows.Close()

	var out []PlayArea
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, eris.Wrap(err, "geo: scan play area row")
		}
		out = append(out, PlayArea{Name: name, Geom: decodePoint(DatasetPlayAreas, raw)})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate play area rows")
	}
	return out, nil
}

// selectSQL builds a SELECT over the dataset table. Rows are ordered by name so
// repeated reads of an unchanged table return the same sequence.
func selectSQL(d DatasetSchema, cols ...string) string {
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY 1",
		strings.Join(cols, ", "), quoteIdent(d.Table))
	if d.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", d.Limit)
	}
	return sql
}

func textCol(col string) string {
	if col == "" {
		return "''::text"
	}
	return fmt.Sprintf("COALESCE(%s::text, '')", quoteIdent(col))
}

func numericCol(col, typ string) string {
	if col == "" {
		return "0::" + typ
	}
	return fmt.Sprintf("COALESCE(%s::%s, 0)", quoteIdent(col), typ)
}

func geomCol(col string) string {
	return fmt.Sprintf("ST_AsEWKB(%s)", quoteIdent(col))
}

func quoteIdent(ident string) string {
	return pgx.Identifier(strings.SplitN(ident, ".", 2)).Sanitize()
}

// parseSecurity reads the stored security score. Unparseable values become -1
// so the normalizer drops the row.
func parseSecurity(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return -1
}

// decodeGeometry decodes EWKB. NULL or malformed geometry decodes to nil and is
// dropped later by the normalizer.
func decodeGeometry(dataset string, raw []byte) geom.T {
	if len(raw) == 0 {
		return nil
	}
	g, err := ewkb.Unmarshal(raw)
	if err != nil {
		zap.L().Debug("geo: undecodable geometry", zap.String("dataset", dataset), zap.Error(err))
		return nil
	}
	return g
}

func decodePoint(dataset string, raw []byte) *geom.Point {
	p, ok := decodeGeometry(dataset, raw).(*geom.Point)
	if !ok {
		return nil
	}
	return p
}
