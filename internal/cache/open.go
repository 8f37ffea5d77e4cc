package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

const memoryCleanupInterval = 10 * time.Minute

// Open builds the configured backend: none, memory, disk, layered, minio, postgres or mysql
func Open(ctx context.Context, cfg model.CacheConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none", "off":
		return Nop{}, nil

	case "memory":
		return NewGate(NewMemoryCache(cfg.TTL, memoryCleanupInterval), cfg.TTL), nil

	case "disk":
		return NewGate(NewDiskCache(cfg.Dir, cfg.TTL), cfg.TTL), nil

	case "layered":
		return NewGate(NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL), cfg.TTL), nil

	case "minio", "s3":
		objects, err := NewObjectCache(ctx, cfg.Minio, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return NewGate(NewLayers(NewMemoryCache(cfg.TTL, memoryCleanupInterval), objects), cfg.TTL), nil

	case "postgres", "postgresql", "supabase":
		return openSQL(ctx, "postgres", cfg.DatabaseURL, cfg)

	case "mysql":
		return openSQL(ctx, "mysql", cfg.MySQLDSN, cfg)

	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}

func openSQL(ctx context.Context, dialectName, dsn string, cfg model.CacheConfig) (Backend, error) {
	db, err := Connect(ctx, dialectName, dsn)
	if err != nil {
		return nil, err
	}

	var store *SQLStore
	if dialectName == "mysql" {
		store = NewMySQLStore(db, cfg.TTL)
	} else {
		store = NewPostgresStore(db, cfg.TTL)
	}

	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return store, nil
}
