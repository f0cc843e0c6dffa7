package repository

import (
	"context"
	"sync/atomic"
	"time"

	"hotelbooking/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheRepository serves from primary (Redis) and switches to fallback
// (memory) on the first error, probing primary again once a minute.
type FailoverCacheRepository struct {
	primary   domain.CacheRepository
	fallback  domain.CacheRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// IsDown reports whether the primary is currently bypassed.
func (r *FailoverCacheRepository) IsDown() bool {
	return r.isDown.Load()
}

func (r *FailoverCacheRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return time.Since(last) > recoveryInterval
}

func (r *FailoverCacheRepository) report(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary cache repository recovered")
		}
		return
	}
	if r.isDown.CompareAndSwap(false, true) {
		r.logger.Error().Err(err).Msg("Primary cache repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCacheRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.Get(ctx, key)
		r.report(err)
		if err == nil {
			return val, ok, nil
		}
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, value, ttl)
		r.report(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.Set(ctx, key, value, ttl)
}

// Delete clears both stores so a recovered primary never serves stale data
// that was invalidated while it was down.
func (r *FailoverCacheRepository) Delete(ctx context.Context, keys ...string) error {
	fallbackErr := r.fallback.Delete(ctx, keys...)
	if r.usePrimary() {
		err := r.primary.Delete(ctx, keys...)
		r.report(err)
		if err == nil {
			return fallbackErr
		}
	}
	return fallbackErr
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.report(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverCacheRepository) ReleaseRateLimit(ctx context.Context, key string) error {
	if r.usePrimary() {
		err := r.primary.ReleaseRateLimit(ctx, key)
		r.report(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.ReleaseRateLimit(ctx, key)
}
