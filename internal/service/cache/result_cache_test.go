package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinInfluence/internal/domain/models"
	pkgcache "FinInfluence/pkg/cache"
	"FinInfluence/pkg/logger"
	"FinInfluence/pkg/metrics"
)

func newCache(capacity int, remote pkgcache.Service) *ResultCache {
	c := NewResultCache(Options{Capacity: capacity, Remote: remote, RemoteTTL: time.Hour}, metrics.Nop{}, logger.Nop())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	c.now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&tick, 1)) * time.Second)
	}
	return c
}

func result(n int) ComputeFunc {
	return func(context.Context) (*Computed, error) {
		return &Computed{Graph: models.Graph{
			Nodes: []models.Node{{ID: "A"}, {ID: "B"}},
			Edges: []models.Edge{{Source: "A", Target: "B", Method: models.MethodCausality, Value: float64(n) / 100}},
		}}, nil
	}
}

func TestKey(t *testing.T) {
	snaps := models.SnapshotSet{
		{Symbol: "MSFT", Price: 300.456, ChangePercent: -1.25},
		{Symbol: "AAPL", Price: 150, ChangePercent: 2.04},
	}
	assert.Equal(t, "AAPL:150.00:2.0_MSFT:300.46:-1.3", Key(snaps))

	reordered := models.SnapshotSet{snaps[1], snaps[0]}
	assert.Equal(t, Key(snaps), Key(reordered))
	assert.Equal(t, "MSFT", snaps[0].Symbol, "input order is left alone")

	nearby := models.SnapshotSet{
		{Symbol: "AAPL", Price: 150.001, ChangePercent: 2.01},
		{Symbol: "MSFT", Price: 300.455, ChangePercent: -1.25},
	}
	assert.Equal(t, Key(snaps), Key(nearby), "differences below the rounding precision share a key")
}

func TestGetOrComputeIsIdempotent(t *testing.T) {
	c := newCache(10, nil)
	ctx := context.Background()

	var calls int
	compute := func(ctx context.Context) (*Computed, error) {
		calls++
		return result(1)(ctx)
	}

	first, cached, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := c.GetOrCompute(ctx, "k", compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Graph, second.Graph)
	assert.True(t, first.Timestamp.Equal(second.Timestamp), "timestamp is the original compute time")
}

func TestEvictsOldestOnOverflow(t *testing.T) {
	c := newCache(10, nil)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		_, _, err := c.GetOrCompute(ctx, fmt.Sprintf("k%d", i), result(i))
		require.NoError(t, err)
		assert.LessOrEqual(t, c.Len(), 10)
	}

	assert.Equal(t, 10, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok, "first inserted is the oldest")
	for i := 1; i < 11; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d", i)
	}
}

func TestEvictionTieBreaksByInsertion(t *testing.T) {
	c := newCache(2, nil)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	for _, k := range []string{"a", "b", "c"} {
		_, err := c.Put(k, &Computed{})
		require.NoError(t, err)
	}
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	c := newCache(10, nil)
	var calls int32
	compute := func(ctx context.Context) (*Computed, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return result(5)(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, _, err := c.GetOrCompute(context.Background(), "same", compute)
			assert.NoError(t, err)
			assert.NotNil(t, e)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := newCache(10, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (*Computed, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestClear(t *testing.T) {
	c := newCache(10, nil)
	_, err := c.Put("k", &Computed{})
	require.NoError(t, err)
	require.NoError(t, c.Clear(context.Background()))
	assert.Zero(t, c.Len())
}

func TestClearAlsoClearsSharedTier(t *testing.T) {
	db, mock := redismock.NewClientMock()
	remote := pkgcache.NewRedisCacheFromClient(db, "influence")
	c := newCache(10, remote)
	_, err := c.Put("k", &Computed{})
	require.NoError(t, err)

	stale := "influence:result:" + pkgcache.HashKey("k")
	mock.ExpectScan(0, "influence:result:*", 100).SetVal([]string{stale}, 0)
	mock.ExpectUnlink(stale).SetVal(1)

	require.NoError(t, c.Clear(context.Background()))
	assert.Zero(t, c.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearReportsSharedTierFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := newCache(10, pkgcache.NewRedisCacheFromClient(db, "influence"))
	_, err := c.Put("k", &Computed{})
	require.NoError(t, err)

	mock.ExpectScan(0, "influence:result:*", 100).SetErr(errors.New("connection refused"))
	assert.Error(t, c.Clear(context.Background()))
	assert.Zero(t, c.Len(), "local tier is cleared regardless")
}

func TestSharedTierHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	remote := pkgcache.NewRedisCacheFromClient(db, "influence")
	c := newCache(10, remote)

	stored := Entry{
		Key:       "AAPL:1.00:0.0_MSFT:2.00:0.0",
		Graph:     models.Graph{Nodes: []models.Node{{ID: "AAPL"}, {ID: "MSFT"}}},
		Timestamp: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)
	mock.ExpectGet("influence:result:" + pkgcache.HashKey(stored.Key)).SetVal(string(raw))

	e, cached, err := c.GetOrCompute(context.Background(), stored.Key, func(context.Context) (*Computed, error) {
		t.Fatal("compute must not run on a shared-tier hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.True(t, stored.Timestamp.Equal(e.Timestamp))
	assert.Equal(t, 1, c.Len(), "hit is promoted to the local tier")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedTierMissWritesThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	remote := pkgcache.NewRedisCacheFromClient(db, "influence")
	c := newCache(10, remote)
	key := "AAPL:1.00:0.0_MSFT:2.00:0.0"
	hashed := "influence:result:" + pkgcache.HashKey(key)

	mock.ExpectGet(hashed).RedisNil()
	mock.Regexp().ExpectSet(hashed, `.*`, time.Hour).SetVal("OK")

	_, cached, err := c.GetOrCompute(context.Background(), key, result(1))
	require.NoError(t, err)
	assert.False(t, cached)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedTierErrorsAreIgnored(t *testing.T) {
	db, mock := redismock.NewClientMock()
	remote := pkgcache.NewRedisCacheFromClient(db, "influence")
	c := newCache(10, remote)
	hashed := "influence:result:" + pkgcache.HashKey("k")

	mock.ExpectGet(hashed).SetErr(errors.New("connection refused"))
	mock.Regexp().ExpectSet(hashed, `.*`, time.Hour).SetErr(errors.New("connection refused"))

	e, cached, err := c.GetOrCompute(context.Background(), "k", result(2))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotNil(t, e)
}

func sharedHit(t *testing.T, mock redismock.ClientMock, key string, ts time.Time) {
	t.Helper()
	raw, err := json.Marshal(Entry{Key: key, Graph: models.Graph{Nodes: []models.Node{{ID: "A"}, {ID: "B"}}}, Timestamp: ts})
	require.NoError(t, err)
	mock.ExpectGet("influence:result:" + pkgcache.HashKey(key)).SetVal(string(raw))
}

func mustNotCompute(t *testing.T) ComputeFunc {
	return func(context.Context) (*Computed, error) {
		t.Fatal("compute must not run on a shared-tier hit")
		return nil, nil
	}
}

func TestSharedTierHitOlderThanFullLocalTierIsNotPromoted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := newCache(2, pkgcache.NewRedisCacheFromClient(db, "influence"))
	for _, k := range []string{"a", "b"} {
		_, err := c.Put(k, &Computed{})
		require.NoError(t, err)
	}

	sharedHit(t, mock, "old", time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC))
	e, cached, err := c.GetOrCompute(context.Background(), "old", mustNotCompute(t))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "old", e.Key)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("old")
	assert.False(t, ok)
	for _, k := range []string{"a", "b"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s survives", k)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedTierHitNewerThanOldestIsPromoted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := newCache(2, pkgcache.NewRedisCacheFromClient(db, "influence"))
	for _, k := range []string{"a", "b"} {
		_, err := c.Put(k, &Computed{})
		require.NoError(t, err)
	}

	sharedHit(t, mock, "recent", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	_, cached, err := c.GetOrCompute(context.Background(), "recent", mustNotCompute(t))
	require.NoError(t, err)
	assert.True(t, cached)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("recent")
	assert.True(t, ok)
	_, ok = c.Get("a")
	assert.False(t, ok, "oldest local entry makes room")
	require.NoError(t, mock.ExpectationsWereMet())
}
