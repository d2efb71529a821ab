// Package bootstrap wires configuration into a ready Service: it opens the
// configured snapshot store and, for the server, the suggestion pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"kasirpos/internal/cache"
	"kasirpos/internal/config"
	"kasirpos/internal/service"
	"kasirpos/internal/store"
	"kasirpos/internal/store/gormstore"
	"kasirpos/internal/store/memory"
	pgstore "kasirpos/internal/store/postgres"
	"kasirpos/internal/store/redisstore"
	"kasirpos/internal/suggestion"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// Runtime is a loaded Service plus whatever must be closed on shutdown, in
// close order.
type Runtime struct {
	Service *service.Service
	closers []func() error
}

func (r *Runtime) Close(log logrus.FieldLogger) {
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close error")
		}
	}
}

type Options struct {
	// WithSuggestions starts the debounced suggestion pipeline. Batch tools
	// leave it off.
	WithSuggestions bool
}

func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger, opts Options) (*Runtime, error) {
	rt := &Runtime{}

	repo, closeRepo, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var debouncer *suggestion.Debouncer
	if opts.WithSuggestions {
		debouncer = rt.suggestions(ctx, cfg, log)
	}
	if closeRepo != nil {
		rt.closers = append(rt.closers, closeRepo)
	}

	rt.Service = service.New(repo, service.Options{
		Logger:            log,
		Suggestions:       debouncer,
		Location:          cfg.Location(),
		SeedAdminPassword: cfg.SeedAdminPassword,
		SeedUserPassword:  cfg.SeedUserPassword,
	})
	if err := rt.Service.Load(ctx); err != nil {
		rt.Close(log)
		return nil, fmt.Errorf("load pos state: %w", err)
	}
	return rt, nil
}

// OpenStore returns the snapshot store named by STORE_BACKEND. A configured
// backend that cannot be reached is an error; there is no silent fallback to
// memory.
func OpenStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (store.SnapshotStore, func() error, error) {
	switch cfg.StoreBackend {
	case "", "memory":
		log.Info("store: in-memory")
		return memory.New(), nil, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("STORE_BACKEND=postgres requires DATABASE_URL")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		log.Info("store: postgres")
		return pg, pg.Close, nil
	case "mysql":
		if cfg.MySQLDSN == "" {
			return nil, nil, errors.New("STORE_BACKEND=mysql requires MYSQL_DSN")
		}
		db, err := gormstore.New(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql unavailable: %w", err)
		}
		log.Info("store: mysql")
		return db, db.Close, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, nil, errors.New("STORE_BACKEND=redis requires REDIS_ADDR")
		}
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis unavailable: %w", err)
		}
		log.Info("store: redis")
		return rs, rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StoreBackend)
	}
}

// suggestions builds the Gemini-backed debouncer. Without an API key the
// debouncer still runs but every call yields no suggestion.
func (r *Runtime) suggestions(ctx context.Context, cfg config.Config, log logrus.FieldLogger) *suggestion.Debouncer {
	cacheStore := cache.SuggestionCache(cache.NoopSuggestionCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSuggestionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, using noop suggestion cache")
			_ = redisCache.Close()
		} else {
			cacheStore = redisCache
			r.closers = append(r.closers, redisCache.Close)
			log.Info("suggestion cache: redis")
		}
	}

	var provider suggestion.Provider
	if cfg.GeminiAPIKey != "" {
		gemini, err := suggestion.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.WithError(err).Warn("gemini unavailable, suggestions disabled")
		} else {
			provider = gemini
			r.closers = append(r.closers, gemini.Close)
		}
	} else {
		log.Info("GEMINI_API_KEY not set, suggestions disabled")
	}

	engine := suggestion.NewEngine(provider, cacheStore, cfg.SuggestionCacheTTL, cfg.SuggestionTimeout, log)
	debouncer := suggestion.NewDebouncer(cfg.SuggestionDelay, engine.Suggest)
	// Pending timers must stop before the provider and cache close.
	r.closers = append([]func() error{func() error { debouncer.Close(); return nil }}, r.closers...)
	return debouncer
}
