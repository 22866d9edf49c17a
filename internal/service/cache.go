package service

import (
	"context"
	"time"

	"github.com/fortuna/syndicate/internal/cache"
)

// Cache is the subset of cache.RedisCache the services use
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, interface{}) error { return cache.ErrMiss }

func (noopCache) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, ...string) error { return nil }
