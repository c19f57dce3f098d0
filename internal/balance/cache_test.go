package balance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memCache struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if m.failGet {
		return false, errors.New("connection refused")
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type stubFetcher struct {
	balance int64
	ok      bool
	calls   int
}

func (s *stubFetcher) FetchBalance(context.Context, uint, string) (int64, bool) {
	s.calls++
	return s.balance, s.ok
}

func TestCachedFetcher_CachesSuccess(t *testing.T) {
	next := &stubFetcher{balance: 42, ok: true}
	cache := newMemCache()
	f := NewCachedFetcher(next, cache, time.Minute, quietLogger())

	for i := 0; i < 3; i++ {
		b, ok := f.FetchBalance(context.Background(), 7, "jan")
		assert.True(t, ok)
		assert.Equal(t, int64(42), b)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Minute, cache.ttls["balance:user:7"])
}

func TestCachedFetcher_DoesNotCacheUnknown(t *testing.T) {
	next := &stubFetcher{ok: false}
	cache := newMemCache()
	f := NewCachedFetcher(next, cache, time.Minute, quietLogger())

	_, ok := f.FetchBalance(context.Background(), 7, "jan")
	assert.False(t, ok)
	_, ok = f.FetchBalance(context.Background(), 7, "jan")
	assert.False(t, ok)
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, cache.data)
}

func TestCachedFetcher_Invalidate(t *testing.T) {
	next := &stubFetcher{balance: 10, ok: true}
	cache := newMemCache()
	f := NewCachedFetcher(next, cache, time.Minute, quietLogger())

	f.FetchBalance(context.Background(), 7, "jan")
	f.Invalidate(context.Background(), 7)
	next.balance = 3
	b, ok := f.FetchBalance(context.Background(), 7, "jan")
	assert.True(t, ok)
	assert.Equal(t, int64(3), b)
	assert.Equal(t, 2, next.calls)
}

func TestCachedFetcher_CacheErrorFallsThrough(t *testing.T) {
	next := &stubFetcher{balance: 9, ok: true}
	cache := newMemCache()
	cache.failGet = true
	f := NewCachedFetcher(next, cache, time.Minute, quietLogger())

	b, ok := f.FetchBalance(context.Background(), 7, "jan")
	assert.True(t, ok)
	assert.Equal(t, int64(9), b)
}
