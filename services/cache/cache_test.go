package cachesvc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/testutil"
)

func TestMain(m *testing.M) {
	// the redis pool keeps redialing an unreachable server until the client is closed
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).tryDial"))
}

func TestMemoryStore_ttl(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "forever", []byte("2"), 0))

	val, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	now = now.Add(time.Minute)
	_, ok, _ = s.Get(ctx, "a")
	assert.False(t, ok, "entry expires exactly at its ttl")
	assert.Equal(t, 1, s.Len(), "expired entry dropped on read")

	_, ok, _ = s.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "forever"))
	_, ok, _ = s.Get(ctx, "forever")
	assert.False(t, ok)
}

func TestMemoryStore_janitor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(5 * time.Millisecond)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Millisecond))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))

	assert.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")
}

type course struct {
	Subject    string `json:"subject"`
	CatalogNbr string `json:"catalogNbr"`
}

func TestCache_Fetch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	c := New(s, testutil.NewLogger(t))

	var calls int32
	fn := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return []course{{Subject: "CS", CatalogNbr: "2110"}}, nil
	}

	var got []course
	require.NoError(t, c.Fetch(ctx, "search:SP26:CS", time.Hour, &got, fn))
	assert.Equal(t, []course{{Subject: "CS", CatalogNbr: "2110"}}, got)

	got = nil
	require.NoError(t, c.Fetch(ctx, "search:SP26:CS", time.Hour, &got, fn))
	assert.Len(t, got, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "second fetch is a hit")

	require.NoError(t, s.Delete(ctx, "search:SP26:CS"))
	require.NoError(t, c.Fetch(ctx, "search:SP26:CS", time.Hour, &got, fn))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCache_Fetch_errorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	c := New(s, testutil.NewLogger(t))

	boom := errors.New("boom")
	var dst []course
	err := c.Fetch(ctx, "k", time.Hour, &dst, func(context.Context) (interface{}, error) { return nil, boom })
	assert.Equal(t, boom, err)
	assert.Zero(t, s.Len())
}

func TestCache_Fetch_coalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	c := New(s, testutil.NewLogger(t))

	var calls int32
	release := make(chan struct{})
	fn := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return course{Subject: "MATH", CatalogNbr: "1920"}, nil
	}

	var wg sync.WaitGroup
	results := make([]course, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Fetch(ctx, "same", time.Hour, &results[i], fn))
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "MATH", r.Subject)
	}
}

func TestCache_Fetch_cancelledCallerDoesNotFailOthers(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	c := New(s, testutil.NewLogger(t))

	var (
		once    sync.Once
		fnErr   error
		started = make(chan struct{})
		release = make(chan struct{})
	)
	fn := func(ctx context.Context) (interface{}, error) {
		once.Do(func() { close(started) })
		<-release
		fnErr = ctx.Err()
		return course{Subject: "CS", CatalogNbr: "4820"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		var dst course
		first <- c.Fetch(ctx, "k", time.Hour, &dst, fn)
	}()
	<-started
	cancel()
	assert.Equal(t, context.Canceled, <-first)

	var got course
	second := make(chan error, 1)
	go func() {
		second <- c.Fetch(context.Background(), "k", time.Hour, &got, fn)
	}()
	time.Sleep(20 * time.Millisecond) // joins the call still in flight
	close(release)

	require.NoError(t, <-second)
	assert.Equal(t, "4820", got.CatalogNbr)
	assert.NoError(t, fnErr, "the shared call is not cancelled with its first caller")
	assert.Equal(t, 1, s.Len())
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("conn refused")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("conn refused")
}
func (brokenStore) Delete(context.Context, string) error { return nil }

func TestCache_Fetch_storeFailuresAreNotFatal(t *testing.T) {
	logger := testutil.NewLogger(t)
	c := New(brokenStore{}, logger)

	var got course
	err := c.Fetch(context.Background(), "k", time.Hour, &got, func(context.Context) (interface{}, error) {
		return course{Subject: "CS"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "CS", got.Subject)
	assert.Equal(t, 2, logger.Count("WARN"))
}

// nothing listens on port 1
func unreachableRedisConfig() *core.Config {
	conf := core.NewTestConfig()
	conf.Cache.Driver = "redis"
	conf.Cache.RedisAddr = "127.0.0.1:1"
	return conf
}

func TestNewStore(t *testing.T) {
	store, closer := NewStore(core.NewTestConfig(), testutil.NewLogger(t))
	assert.IsType(t, &MemoryStore{}, store)
	require.NoError(t, closer.Close())

	logger := testutil.NewLogger(t)
	store, closer = NewStore(unreachableRedisConfig(), logger)
	defer closer.Close()
	assert.IsType(t, &MemoryStore{}, store, "falls back to memory")
	assert.Equal(t, 1, logger.Count("WARN"))
}

func TestRedisStore_unreachable(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(unreachableRedisConfig())
	defer s.Close()

	_, ok, err := s.Get(ctx, "k")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "redis get")
	assert.ErrorContains(t, s.Set(ctx, "k", []byte("1"), time.Minute), "redis set")
	assert.ErrorContains(t, s.Delete(ctx, "k"), "redis del")
	assert.ErrorContains(t, s.Ping(ctx), "pinging redis")
}
