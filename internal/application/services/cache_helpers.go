package services

import (
	"context"
	"fmt"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Lookup outcomes recorded on the cache lookup counter.
const (
	lookupHit     = "hit"
	lookupMiss    = "miss"
	lookupError   = "error"
	lookupCorrupt = "corrupt"
)

// cacheSetSilently stores v under key. Cache failures are logged and dropped:
// the caller already holds the value it is about to return.
func cacheSetSilently(ctx context.Context, s *ReadingService, key string, v any) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logCacheFailure(key, "encode", err)
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.logCacheFailure(key, "write", err)
	}
}

// cacheGet returns the decoded entry for key. Read errors count as a miss;
// entries that no longer decode are deleted so they are never served.
func cacheGet[T any](ctx context.Context, s *ReadingService, tag astrology.OperationTag, key string) (*T, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.observe(tag, lookupError)
		s.logCacheFailure(key, "read", err)
		return nil, false
	}
	if !ok {
		s.observe(tag, lookupMiss)
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.observe(tag, lookupCorrupt)
		s.logCacheFailure(key, "decode", err)
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.logCacheFailure(key, "evict", delErr)
		}
		return nil, false
	}
	s.observe(tag, lookupHit)
	return &v, true
}

// cachedCall serves key from the cache or runs load once and stores its result.
// load reports whether the value may be cached; failures are never stored.
func cachedCall[T any](ctx context.Context, s *ReadingService, tag astrology.OperationTag, key string, load func(context.Context) (T, bool, error)) (T, error) {
	var zero T
	if v, ok := cacheGet[T](ctx, s, tag, key); ok {
		return *v, nil
	}
	res, err := s.detached(ctx, key, func(uctx context.Context) (any, error) {
		v, cacheable, err := load(uctx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			cacheSetSilently(uctx, s, key, v)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type %T from upstream call", res)
	}
	return v, nil
}

// detached runs fn on a context that survives client cancellation, bounded by
// the upstream timeout, so a finished upstream call still reaches the cache.
// With coalescing on, concurrent callers for the same key share one flight.
func (s *ReadingService) detached(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	work := func() (any, error) {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return fn(uctx)
	}

	var ch <-chan singleflight.Result
	if s.coalesce {
		ch = s.sf.DoChan(key, work)
	} else {
		c := make(chan singleflight.Result, 1)
		go func() {
			v, err := work()
			c <- singleflight.Result{Val: v, Err: err}
		}()
		ch = c
	}

	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		if s.logger != nil {
			s.logger.WithField("key", key).Debug("client gone before upstream finished; letting call complete")
		}
		return nil, ctx.Err()
	}
}

func (s *ReadingService) observe(tag astrology.OperationTag, result string) {
	if s.lookups != nil {
		s.lookups.WithLabelValues(string(tag), result).Inc()
	}
}

func (s *ReadingService) logCacheFailure(key, action string, err error) {
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "action": action}).
			WithError(fmt.Errorf("%w: %v", astrology.ErrCacheIO, err)).
			Warn("cache unavailable; continuing without it")
	}
}
