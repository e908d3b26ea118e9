package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fortuna/stathistory/internal/cache"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/history"
	"github.com/fortuna/stathistory/internal/mmolb"
	"github.com/fortuna/stathistory/internal/store"
)

// deps are the long-lived connections behind one run.
type deps struct {
	builder *history.Builder
	redis   *cache.RedisCache
	db      *store.Database
	closers []func() error
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Printf("⚠️  Close error: %v", err)
		}
	}
}

// openDeps connects the configured response cache and builds the history
// pipeline on top of it. An unreachable cache is not fatal: the run
// continues uncached.
func openDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}
	var c cache.Cache = cache.Nop{}

	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis cache unavailable: %v (continuing uncached)", err)
			break
		}
		d.redis = rc
		d.closers = append(d.closers, rc.Close)
		c = rc
		log.Println("✓ Connected to Redis")
	case config.CachePostgres:
		db, err := openDatabase(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Printf("⚠️  Postgres cache unavailable: %v (continuing uncached)", err)
			break
		}
		d.db = db
		d.closers = append(d.closers, db.Close)
		c = store.NewResponseCache(db)
	case config.CacheNone:
	default:
		return nil, fmt.Errorf("%w: cache backend %q", config.ErrInvalid, cfg.CacheBackend)
	}

	fetcher := mmolb.NewFetcher(&http.Client{Timeout: 60 * time.Second}, c, cfg.CacheTTL, cfg.MaxConnections, nil)
	client := mmolb.New(fetcher, cfg.ChronBase, cfg.APIBase, nil)
	d.builder = history.NewBuilder(client, nil)
	return d, nil
}

func openDatabase(ctx context.Context, dsn string) (*store.Database, error) {
	db, err := store.NewDatabase(dsn)
	if err != nil {
		return nil, err
	}
	log.Println("✓ Connected to Postgres")

	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Println("✓ Database migrations applied")
	return db, nil
}

func runPurge(parent context.Context, cfg config.Config, all bool) error {
	ctx, stop := signalContext(parent)
	defer stop()

	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rc.Close()
		n, err := rc.Purge(ctx)
		if err != nil {
			return fmt.Errorf("purging redis cache: %w", err)
		}
		log.Printf("✓ Purged %d cached responses from Redis", n)
	case config.CachePostgres:
		db, err := openDatabase(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := store.NewResponseCache(db).Purge(ctx, all)
		if err != nil {
			return fmt.Errorf("purging postgres cache: %w", err)
		}
		log.Printf("✓ Purged %d cached responses from Postgres", n)
	default:
		log.Printf("Cache backend %q keeps nothing to purge", cfg.CacheBackend)
	}
	return nil
}
