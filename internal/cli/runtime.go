package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/legislens/internal/aggregator"
	"github.com/ppiankov/legislens/internal/cache"
	"github.com/ppiankov/legislens/internal/congress"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
	"github.com/ppiankov/legislens/internal/worker"
)

// runtimeDeps is everything a command needs to analyze bills
type runtimeDeps struct {
	cfg      *model.Config
	logger   *telemetry.Logger
	limiter  *worker.Limiter
	agg      *aggregator.Aggregator
	congress *congress.Client
	store    cache.Backend
}

// buildRuntime wires the aggregator, Congress.gov client and cache from cfg.
// A cache that fails to open is reported and replaced by no caching.
func buildRuntime(ctx context.Context, cfg *model.Config, useCache bool) (*runtimeDeps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger := newLogger(cfg)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	rt := &runtimeDeps{
		cfg:      cfg,
		logger:   logger,
		limiter:  limiter,
		agg:      aggregator.NewFromConfig(cfg, limiter, logger),
		congress: congress.NewClientFromConfig(cfg.Congress, cfg.HTTP, limiter, logger),
		store:    cache.Nop{},
	}

	if useCache {
		store, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			logger.Warn("cache disabled", map[string]any{"backend": cfg.Cache.Backend, "error": err})
		} else {
			rt.store = store
		}
	}
	return rt, nil
}

func (rt *runtimeDeps) Close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("cache close failed", map[string]any{"error": err})
	}
}
