package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/config"
	"github.com/devoverflow/overflow-server/internal/logger"
)

// CacheBackendHandle wraps the view cache backend with shutdown capability.
type CacheBackendHandle struct {
	cache.Backend
}

// Shutdown implements do.Shutdownable.
func (h *CacheBackendHandle) Shutdown() error {
	return h.Close()
}

// ProvideCacheBackend opens the configured view cache backend.
func ProvideCacheBackend(i do.Injector) (*CacheBackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		backend, err := cache.OpenRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		log.Info("View cache connected", "backend", "redis", "addr", cfg.Cache.RedisAddr)
		return &CacheBackendHandle{Backend: backend}, nil

	default:
		backend, err := cache.OpenBadger(cache.BadgerConfig{
			Path:     cfg.Data.CachePath(),
			InMemory: cfg.Cache.InMemory,
			Logger:   log.Component("cache").Logger,
		})
		if err != nil {
			return nil, err
		}
		log.Info("View cache opened", "backend", "badger", "in_memory", cfg.Cache.InMemory)
		return &CacheBackendHandle{Backend: backend}, nil
	}
}

// ProvideViews provides the tag-versioned view cache.
func ProvideViews(i do.Injector) (*cache.Views, error) {
	cfg := do.MustInvoke[*config.Config](i)
	backendHandle := do.MustInvoke[*CacheBackendHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return cache.NewViews(backendHandle.Backend, cfg.Cache.TTL, log.Component("cache").Logger), nil
}

// ProvideInvalidator provides the post-commit invalidator. Fired tags are
// also pushed to connected clients through the SSE manager.
func ProvideInvalidator(i do.Injector) (*cache.Invalidator, error) {
	backendHandle := do.MustInvoke[*CacheBackendHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return cache.NewInvalidator(cache.NewRegister(), backendHandle.Backend, sseHandle.Manager, log.Component("cache").Logger), nil
}
