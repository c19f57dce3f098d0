package balance

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is the key/value store behind CachedFetcher, satisfied by utils.RedisCache
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedFetcher serves balances from Cache and falls through to the remote Fetcher.
// Unknown balances are never cached.
type CachedFetcher struct {
	next  Fetcher
	cache Cache
	ttl   time.Duration
	log   logrus.FieldLogger
}

// NewCachedFetcher wraps next with a read-through cache
func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, log logrus.FieldLogger) *CachedFetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, log: log}
}

// Key returns the cache key holding the balance of userID
func Key(userID uint) string {
	return "balance:user:" + strconv.FormatUint(uint64(userID), 10)
}

// FetchBalance implements Fetcher
func (f *CachedFetcher) FetchBalance(ctx context.Context, userID uint, nickname string) (int64, bool) {
	var cached int64
	found, err := f.cache.Get(ctx, Key(userID), &cached)
	if err != nil {
		f.log.WithField("user_id", userID).WithError(err).Warn("Balance cache read failed")
	} else if found {
		return cached, true
	}

	balance, ok := f.next.FetchBalance(ctx, userID, nickname)
	if !ok {
		return 0, false
	}
	if err := f.cache.Set(ctx, Key(userID), balance, f.ttl); err != nil {
		f.log.WithField("user_id", userID).WithError(err).Warn("Balance cache write failed")
	}
	return balance, true
}

// Invalidate drops the cached balance of userID
func (f *CachedFetcher) Invalidate(ctx context.Context, userID uint) {
	if err := f.cache.Delete(ctx, Key(userID)); err != nil {
		f.log.WithField("user_id", userID).WithError(err).Warn("Balance cache invalidation failed")
	}
}
