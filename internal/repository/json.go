package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hotelbooking/internal/domain"
)

// GetJSON loads key into v. It reports false on a miss.
func GetJSON(ctx context.Context, cache domain.CacheRepository, key string, v interface{}) (bool, error) {
	raw, ok, err := cache.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, cache domain.CacheRepository, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return cache.Set(ctx, key, raw, ttl)
}
