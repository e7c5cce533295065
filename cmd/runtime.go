package cmd

import (
	"context"
	"fmt"
	"time"

	"room-mapper/core/cache"
	"room-mapper/core/config"
	"room-mapper/core/database"
	"room-mapper/core/logger"
	"room-mapper/core/storage"
	"room-mapper/feature/ingest"
	"room-mapper/feature/rooms"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds what every command needs: configuration, a logger and the catalog database.
type runtime struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *gorm.DB
	cache *cache.Cache
}

func newRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l.Debug("Connected to catalog database", zap.String("driver", cfg.Database.Driver))

	return &runtime{cfg: cfg, log: l, db: db}, nil
}

// withCache connects the view cache when it is enabled. An unreachable
// Redis is logged and the cache left off.
func (r *runtime) withCache(ctx context.Context) {
	if !r.cfg.Cache.Enabled {
		return
	}
	c := cache.New(r.cfg.Cache)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		r.log.Warn("Redis unavailable, view cache disabled", zap.String("addr", r.cfg.Cache.Addr), zap.Error(err))
		_ = c.Close()
		return
	}
	r.cache = c
}

func (r *runtime) service(opts ...rooms.ServiceOption) *rooms.Service {
	base := []rooms.ServiceOption{rooms.WithBatchSize(r.cfg.Ingest.BatchSize)}
	if r.cache != nil {
		base = append(base, rooms.WithCache(r.cache))
	}
	return rooms.NewService(rooms.NewStore(r.db), r.log, append(base, opts...)...)
}

// ingestor builds an ingestor over svc. Object storage is optional: without
// it only local and request-body feeds can be ingested.
func (r *runtime) ingestor(ctx context.Context, svc *rooms.Service) *ingest.Ingestor {
	client, err := storage.NewClient(r.cfg.Storage)
	if err != nil {
		r.log.Warn("Object storage unavailable", zap.Error(err))
	} else {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		ok, err := client.BucketExists(checkCtx, r.cfg.Storage.Bucket)
		cancel()
		switch {
		case err != nil:
			r.log.Warn("Feed bucket check failed", zap.String("bucket", r.cfg.Storage.Bucket), zap.Error(err))
		case !ok:
			r.log.Warn("Feed bucket does not exist", zap.String("bucket", r.cfg.Storage.Bucket))
		}
	}
	return ingest.NewIngestor(svc, client, r.cfg.Storage.Bucket, r.cfg.Ingest, r.log)
}

func (r *runtime) close() {
	if r.cache != nil {
		_ = r.cache.Close()
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.log.Sync()
}
