package cache

import (
	"context"
	"time"
)

type SuggestionCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type NoopSuggestionCache struct{}

func (NoopSuggestionCache) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func (NoopSuggestionCache) Set(_ context.Context, _ string, _ string, _ time.Duration) error {
	return nil
}
