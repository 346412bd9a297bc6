package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/geospatial"
	"github.com/tindralencia/barrio-match/internal/resilience"
)

// ErrNoNeighborhoods is wrapped in a FatalInputError when the neighborhood
// dataset loads but holds no rows at all.
var ErrNoNeighborhoods = eris.New("matcher: neighborhood dataset is empty")

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRetry sets the retry policy for dataset reads.
func WithRetry(cfg resilience.RetryConfig) ServiceOption {
	return func(s *Service) { s.retry = cfg }
}

// WithBreaker routes dataset reads through b.
func WithBreaker(b *resilience.Breaker) ServiceOption {
	return func(s *Service) { s.breaker = b }
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(fn func() uuid.UUID) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// Service loads a dataset snapshot, runs the pipeline and records demand.
type Service struct {
	store    geospatial.Store
	recorder demand.Recorder
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker
	newID    func() uuid.UUID

	// recording is false for the no-op recorder, which needs no requester.
	recording bool
}

// NewService creates a Service. A nil recorder disables demand recording.
// With any other recorder every request must name its requester in full.
func NewService(store geospatial.Store, recorder demand.Recorder, opts ...ServiceOption) *Service {
	if recorder == nil {
		recorder = demand.NopRecorder{}
	}
	s := &Service{
		store:    store,
		recorder: recorder,
		retry:    resilience.DefaultRetryConfig(),
		newID:    uuid.New,
	}
	_, nop := recorder.(demand.NopRecorder)
	s.recording = !nop
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Match validates req, runs it against a fresh snapshot and records the
// surviving neighborhoods once. Only validation and required-dataset failures
// are returned as errors; everything else is reported as a warning.
func (s *Service) Match(ctx context.Context, req FilterRequest) (*MatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.recording {
		if err := req.validateRequester(); err != nil {
			return nil, err
		}
	}

	id := s.newID()
	log := zap.L().With(zap.String("component", "matcher"), zap.String("request_id", id.String()))
	start := time.Now()

	ds, warnings, err := s.Load(ctx, req)
	if err != nil {
		log.Error("matcher: load datasets", zap.Error(err))
		return nil, err
	}

	result := Run(req, ds)
	result.RequestID = id
	result.Warnings = append(append(make([]Warning, 0, len(warnings)+len(result.Warnings)), warnings...), result.Warnings...)

	if len(result.Neighborhoods) > 0 {
		if err := s.recorder.Record(ctx, id, result.Names(), req.Requester, req.Intent); err != nil {
			log.Warn("matcher: demand write failed", zap.Error(err))
			result.Warnings = append(result.Warnings, Warning{
				Kind:    WarnAuditWriteFailed,
				Message: err.Error(),
			})
		} else {
			result.Recorded = true
		}
	}

	log.Info("match complete",
		zap.Int("neighborhoods", len(result.Neighborhoods)),
		zap.Int("transit_stops", len(result.TransitStops)),
		zap.Int("schools", len(result.Schools)),
		zap.Int("play_areas", len(result.PlayAreas)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("recorded", result.Recorded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// Load reads and normalizes the datasets req needs. Datasets that req does
// not depend on are loaded on a best-effort basis or skipped.
func (s *Service) Load(ctx context.Context, req FilterRequest) (Datasets, []Warning, error) {
	var (
		hoods   []geospatial.Neighborhood
		prices  []geospatial.PriceRecord
		stops   []geospatial.TransitStop
		centers []geospatial.EducationalCenter
		play    []geospatial.PlayArea
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		hoods, err = load(gctx, s, geospatial.DatasetNeighborhoods, true, s.store.Neighborhoods)
		if err == nil && len(hoods) == 0 {
			err = &FatalInputError{Dataset: geospatial.DatasetNeighborhoods, Err: ErrNoNeighborhoods}
		}
		return err
	})
	g.Go(func() (err error) {
		stops, err = load(gctx, s, geospatial.DatasetTransitStops, true, s.store.TransitStops)
		return err
	})
	g.Go(func() (err error) {
		prices, err = load(gctx, s, geospatial.DatasetPrices, req.Price != PriceAny, s.store.PriceRecords)
		return err
	})
	if len(req.SchoolRegimes) > 0 {
		g.Go(func() (err error) {
			centers, err = load(gctx, s, geospatial.DatasetEducationalCenters, true, s.store.EducationalCenters)
			return err
		})
	}
	if req.RequirePlayArea {
		g.Go(func() (err error) {
			play, err = load(gctx, s, geospatial.DatasetPlayAreas, true, s.store.PlayAreas)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Datasets{}, nil, err
	}

	var warnings []Warning
	dropped := func(dataset string, n int) {
		if n > 0 {
			warnings = append(warnings, Warning{
				Kind:    WarnInvalidGeometry,
				Dataset: dataset,
				Message: fmt.Sprintf("%d %s rows dropped for invalid geometry or attributes", n, dataset),
				Count:   n,
			})
		}
	}

	hoods, n := geospatial.NormalizeNeighborhoods(hoods)
	dropped(geospatial.DatasetNeighborhoods, n)
	hoods, dups := geospatial.DedupeNeighborhoods(hoods)
	if dups > 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnDuplicateName,
			Dataset: geospatial.DatasetNeighborhoods,
			Message: fmt.Sprintf("%d duplicate neighborhood names dropped, first occurrence kept", dups),
			Count:   dups,
		})
	}
	stops, n = geospatial.NormalizePoints(stops)
	dropped(geospatial.DatasetTransitStops, n)
	centers, n = geospatial.NormalizePoints(centers)
	dropped(geospatial.DatasetEducationalCenters, n)
	play, n = geospatial.NormalizePoints(play)
	dropped(geospatial.DatasetPlayAreas, n)

	return Datasets{
		Neighborhoods: hoods,
		Prices:        prices,
		TransitStops:  stops,
		Centers:       centers,
		PlayAreas:     play,
	}, warnings, nil
}

// load reads one dataset with retry and, when configured, the breaker. A
// failure on a required dataset becomes a FatalInputError; an optional one is
// logged and treated as empty.
func load[T any](ctx context.Context, s *Service, dataset string, required bool, fn func(context.Context) ([]T, error)) ([]T, error) {
	read := func(ctx context.Context) ([]T, error) {
		return resilience.Do(ctx, s.retry, "load "+dataset, fn)
	}
	var (
		items []T
		err   error
	)
	if s.breaker != nil {
		items, err = resilience.Call(ctx, s.breaker, read)
	} else {
		items, err = read(ctx)
	}
	if err == nil {
		return items, nil
	}
	if !required {
		zap.L().Warn("matcher: optional dataset unavailable",
			zap.String("dataset", dataset), zap.Error(err))
		return nil, nil
	}
	return nil, &FatalInputError{Dataset: dataset, Err: err}
}
