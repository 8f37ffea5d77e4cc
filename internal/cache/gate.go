package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

// Gate adapts a byte Cache to AnalysisStore
type Gate struct {
	cache Cache
	ttl   time.Duration
}

// NewGate wraps c; ttl applies to every stored analysis (zero uses the cache default)
func NewGate(c Cache, ttl time.Duration) *Gate {
	return &Gate{cache: c, ttl: ttl}
}

// Lookup returns a cached analysis. Undecodable entries are evicted and reported as a miss.
func (g *Gate) Lookup(ctx context.Context, billID string, level model.Level) (*model.CompositeAnalysis, bool, error) {
	if strings.TrimSpace(billID) == "" {
		return nil, false, nil
	}
	key := Key(billID, level)

	data, found, err := g.cache.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var analysis model.CompositeAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		_ = g.cache.Delete(ctx, key)
		return nil, false, nil
	}
	return &analysis, true, nil
}

func (g *Gate) Store(ctx context.Context, billID string, level model.Level, analysis *model.CompositeAnalysis) error {
	if strings.TrimSpace(billID) == "" {
		return ErrNoBillID
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := g.cache.Set(ctx, Key(billID, level), data, g.ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close is a no-op; byte caches hold no connections
func (g *Gate) Close() error { return nil }
