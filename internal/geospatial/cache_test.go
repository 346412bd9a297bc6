package geospatial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore is an in-memory Store that counts loads per dataset.
type countingStore struct {
	calls atomic.Int64
	err   error
	delay time.Duration
}

func (s *countingStore) Neighborhoods(_ context.Context) ([]Neighborhood, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return nil, s.err
	}
	return []Neighborhood{hood("A", 1, square(0, 0, 1, 1))}, nil
}

func (s *countingStore) PriceRecords(_ context.Context) ([]PriceRecord, error) {
	s.calls.Add(1)
	return []PriceRecord{{Neighborhood: "A", Category: 1}}, nil
}

func (s *countingStore) TransitStops(_ context.Context) ([]TransitStop, error) {
	s.calls.Add(1)
	return []TransitStop{stop("s", 0.5, 0.5)}, nil
}

func (s *countingStore) EducationalCenters(_ context.Context) ([]EducationalCenter, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *countingStore) PlayAreas(_ context.Context) ([]PlayArea, error) {
	s.calls.Add(1)
	return nil, nil
}

func TestCachedStore_HitAfterMiss(t *testing.T) {
	inner := &countingStore{}
	c := NewCachedStore(inner, time.Hour)
	ctx := context.Background()

	first, err := c.Neighborhoods(ctx)
	require.NoError(t, err)
	second, err := c.Neighborhoods(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load())

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestCachedStore_DatasetsAreIndependent(t *testing.T) {
	inner := &countingStore{}
	c := NewCachedStore(inner, time.Hour)
	ctx := context.Background()

	_, _ = c.Neighborhoods(ctx)
	_, _ = c.TransitStops(ctx)
	_, _ = c.PriceRecords(ctx)
	_, _ = c.TransitStops(ctx)

	assert.Equal(t, int64(3), inner.calls.Load())
	assert.Equal(t, 3, c.Stats().Entries)
}

func TestCachedStore_TTLExpiration(t *testing.T) {
	inner := &countingStore{}
	c := NewCachedStore(inner, 30*time.Millisecond)
	ctx := context.Background()

	_, _ = c.TransitStops(ctx)
	time.Sleep(50 * time.Millisecond)
	_, _ = c.TransitStops(ctx)

	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedStore_ErrorsNotCached(t *testing.T) {
	inner := &countingStore{err: errors.New("connection refused")}
	c := NewCachedStore(inner, time.Hour)

	_, err := c.Neighborhoods(context.Background())
	require.Error(t, err)
	_, err = c.Neighborhoods(context.Background())
	require.Error(t, err)

	assert.Equal(t, int64(2), inner.calls.Load())
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCachedStore_Disabled(t *testing.T) {
	inner := &countingStore{}
	c := NewCachedStore(inner, 0)

	_, _ = c.PlayAreas(context.Background())
	_, _ = c.PlayAreas(context.Background())
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedStore_Invalidate(t *testing.T) {
	inner := &countingStore{}
	c := NewCachedStore(inner, time.Hour)
	ctx := context.Background()

	_, _ = c.Neighborhoods(ctx)
	_, _ = c.TransitStops(ctx)
	c.Invalidate(DatasetNeighborhoods)
	assert.Equal(t, 1, c.Stats().Entries)

	c.Invalidate("")
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCachedStore_ConcurrentMissesLoadOnce(t *testing.T) {
	inner := &countingStore{delay: 20 * time.Millisecond}
	c := NewCachedStore(inner, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Neighborhoods(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.calls.Load())
}

// gatedStore blocks Neighborhoods until release is closed and fails if the
// load context was canceled meanwhile.
type gatedStore struct {
	countingStore
	started chan struct{}
	release chan struct{}
}

func (s *gatedStore) Neighborhoods(ctx context.Context) ([]Neighborhood, error) {
	s.calls.Add(1)
	close(s.started)
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Neighborhood{hood("A", 1, square(0, 0, 1, 1))}, nil
}

func TestCachedStore_CanceledCallerDoesNotFailSharedLoad(t *testing.T) {
	inner := &gatedStore{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCachedStore(inner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Neighborhoods(ctx)
		firstErr <- err
	}()
	<-inner.started

	type result struct {
		hoods []Neighborhood
		err   error
	}
	second := make(chan result, 1)
	go func() {
		got, err := c.Neighborhoods(context.Background())
		second <- result{got, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(inner.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Len(t, res.hoods, 1)
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, 1, c.Stats().Entries)
}
