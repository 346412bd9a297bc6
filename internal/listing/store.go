package listing

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/tindralencia/barrio-match/internal/db"
)

// Store persists listings. *PostgresStore satisfies it.
type Store interface {
	Add(ctx context.Context, l Listing) (Listing, error)
	List(ctx context.Context, op Operation, neighborhood string) ([]Listing, error)
	AveragePrices(ctx context.Context, op Operation, f Filter) (map[string]float64, error)
}

// PostgresStore keeps listings in the listings table created by the schema
// migrations.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a PostgresStore on a pool owned by the caller.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Add validates and inserts l, returning it with its id and creation time.
func (s *PostgresStore) Add(ctx context.Context, l Listing) (Listing, error) {
	l, err := l.Normalize()
	if err != nil {
		return Listing{}, err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO listings (operation, neighborhood, address, street_number, area_m2,
			rooms, bathrooms, extras, elevator, parking, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		string(l.Operation), l.Neighborhood, l.Address, l.StreetNumber, l.AreaM2,
		l.Rooms, l.Bathrooms, l.Extras, l.Elevator, l.Parking, l.Price,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return Listing{}, eris.Wrap(err, "listing: insert")
	}
	return l, nil
}

// List returns the listings for op, newest first. An empty neighborhood
// lists every neighborhood.
func (s *PostgresStore) List(ctx context.Context, op Operation, neighborhood string) ([]Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, operation, neighborhood, address, street_number, area_m2,
			rooms, bathrooms, extras, elevator, parking, price, created_at
		FROM listings
		WHERE operation = $1 AND ($2 = '' OR neighborhood = $2)
		ORDER BY created_at DESC, id DESC`, string(op), neighborhood)
	if err != nil {
		return nil, eris.Wrap(err, "listing: query")
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		var (
			l Listing
			o string
		)
		if err := rows.Scan(&l.ID, &o, &l.Neighborhood, &l.Address, &l.StreetNumber, &l.AreaM2,
			&l.Rooms, &l.Bathrooms, &l.Extras, &l.Elevator, &l.Parking, &l.Price, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "listing: scan")
		}
		l.Operation = Operation(o)
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "listing: iterate")
}

// AveragePrices returns the mean price per neighborhood of the op listings
// matching f.
func (s *PostgresStore) AveragePrices(ctx context.Context, op Operation, f Filter) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT neighborhood, avg(price)
		FROM listings
		WHERE operation = $1 AND rooms = $2 AND bathrooms = $3 AND elevator = $4 AND parking = $5
		GROUP BY neighborhood`,
		string(op), f.Rooms, f.Bathrooms, f.Elevator, f.Parking)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: query %s averages", op)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			name string
			avg  float64
		)
		if err := rows.Scan(&name, &avg); err != nil {
			return nil, eris.Wrapf(err, "listing: scan %s average", op)
		}
		out[name] = avg
	}
	return out, eris.Wrapf(rows.Err(), "listing: iterate %s averages", op)
}

// ComputeYield loads rent and sale averages for f concurrently and joins them.
func ComputeYield(ctx context.Context, s Store, f Filter) ([]YieldRow, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var rents, sales map[string]float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rents, err = s.AveragePrices(gctx, OperationRent, f)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.AveragePrices(gctx, OperationSale, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Yield(rents, sales), nil
}
