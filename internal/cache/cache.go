package cache

import (
	"context"
	"time"

	"kedaikopi/backend/internal/domain"
)

type SuggestionCache interface {
	Get(ctx context.Context, key string) ([]domain.Suggestion, bool, error)
	Set(ctx context.Context, key string, value []domain.Suggestion, ttl time.Duration) error
}

type NoopSuggestionCache struct{}

func (NoopSuggestionCache) Get(_ context.Context, _ string) ([]domain.Suggestion, bool, error) {
	return nil, false, nil
}

func (NoopSuggestionCache) Set(_ context.Context, _ string, _ []domain.Suggestion, _ time.Duration) error {
	return nil
}
