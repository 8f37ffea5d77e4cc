// Package cache persists composite analyses keyed by (bill ID, analysis level).
// Byte-oriented backends (memory, disk, layered, object store) sit behind a
// Gate; SQL backends implement AnalysisStore directly.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

// KeyPrefix namespaces every cache key; bump the version when the stored shape changes
const KeyPrefix = "legislens:v1:"

// ErrNoBillID is returned when a store is attempted without a bill ID
var ErrNoBillID = errors.New("bill id is required for caching")

// Cache is a byte-oriented key/value cache with per-entry TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// AnalysisStore is the lookup/store contract callers use around the aggregator
type AnalysisStore interface {
	Lookup(ctx context.Context, billID string, level model.Level) (*model.CompositeAnalysis, bool, error)
	Store(ctx context.Context, billID string, level model.Level, analysis *model.CompositeAnalysis) error
}

// Backend is an AnalysisStore that may hold connections
type Backend interface {
	AnalysisStore
	io.Closer
}

// Key derives the cache key for a bill analysis
func Key(billID string, level model.Level) string {
	hash := sha256.Sum256([]byte(normalizeBillID(billID) + "|" + string(level)))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

func normalizeBillID(billID string) string {
	return strings.ToLower(strings.TrimSpace(billID))
}

// Nop never hits and discards stores
type Nop struct{}

func (Nop) Lookup(ctx context.Context, billID string, level model.Level) (*model.CompositeAnalysis, bool, error) {
	return nil, false, nil
}

func (Nop) Store(ctx context.Context, billID string, level model.Level, analysis *model.CompositeAnalysis) error {
	return nil
}

func (Nop) Close() error { return nil }
