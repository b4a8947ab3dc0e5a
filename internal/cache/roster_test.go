package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

type countingSource struct {
	workers []store.Worker
	err     error
	calls   int
}

func (s *countingSource) ListWorkers(_ context.Context) ([]store.Worker, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.workers, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleRoster() []store.Worker {
	return []store.Worker{
		{ID: "w1", Name: "Tiler", Skills: []string{"tiler"}, RateHour: 50, Lat: -33.87, Lng: 151.21, Transport: store.TransportCar},
		{ID: "w2", Name: "Sparky", Skills: []string{"electrician"}, Licences: []string{"electrical_lic"}, RateHour: 70},
	}
}

func TestRosterCache_MissThenHit(t *testing.T) {
	_, client := setupRedis(t)
	src := &countingSource{workers: sampleRoster()}
	c := NewRosterCache(src, client, time.Minute, quietLogger())
	ctx := context.Background()

	first, err := c.ListWorkers(ctx)
	require.NoError(t, err)
	second, err := c.ListWorkers(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, "Sparky", second[1].Name)
}

func TestRosterCache_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupRedis(t)
	src := &countingSource{workers: sampleRoster()}
	c := NewRosterCache(src, client, 5*time.Second, quietLogger())
	ctx := context.Background()

	_, err := c.ListWorkers(ctx)
	require.NoError(t, err)
	mr.FastForward(6 * time.Second)
	_, err = c.ListWorkers(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
}

func TestRosterCache_Invalidate(t *testing.T) {
	mr, client := setupRedis(t)
	src := &countingSource{workers: sampleRoster()}
	c := NewRosterCache(src, client, time.Minute, quietLogger())
	ctx := context.Background()

	_, err := c.ListWorkers(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(rosterKey))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(rosterKey))

	_, err = c.ListWorkers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestRosterCache_CorruptSnapshotFallsThrough(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(rosterKey, "{not json"))
	src := &countingSource{workers: sampleRoster()}
	c := NewRosterCache(src, client, time.Minute, quietLogger())

	workers, err := c.ListWorkers(context.Background())
	require.NoError(t, err)
	assert.Len(t, workers, 2)
	assert.Equal(t, 1, src.calls)
}

func TestRosterCache_RedisDownFallsThrough(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()
	src := &countingSource{workers: sampleRoster()}
	c := NewRosterCache(src, client, time.Minute, quietLogger())

	workers, err := c.ListWorkers(context.Background())
	require.NoError(t, err)
	assert.Len(t, workers, 2)
}

func TestRosterCache_SourceErrorNotCached(t *testing.T) {
	mr, client := setupRedis(t)
	src := &countingSource{err: errors.New("db down")}
	c := NewRosterCache(src, client, time.Minute, quietLogger())

	_, err := c.ListWorkers(context.Background())
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists(rosterKey))
}
