package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"room-mapper/core/logger"
	"room-mapper/core/metrics"
	"room-mapper/core/storage"
	"room-mapper/feature/feed"
	"room-mapper/feature/rooms"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mapper folds one room observation into the catalog.
type Mapper interface {
	MapRoom(ctx context.Context, hotelSourceID, roomSourceID, source string, room feed.NormalizedRoom, opts ...rooms.MapOption) (rooms.MapResult, error)
}

// Summary counts the outcome of one feed.
type Summary struct {
	Source          string `json:"source"`
	Object          string `json:"object,omitempty"`
	Rooms           int    `json:"rooms"`
	Created         int    `json:"created"`
	Updated         int    `json:"updated"`
	Skipped         int    `json:"skipped"`
	Failed          int    `json:"failed"`
	ConflictsOpened int    `json:"conflictsOpened"`
	Error           string `json:"error,omitempty"`
}

// Ingestor streams supplier feeds through the parser into a Mapper.
type Ingestor struct {
	mapper Mapper
	client storage.Client
	bucket string
	cfg    Config
	logger *zap.Logger
}

// NewIngestor creates an ingestor. client may be nil when only IngestFeed is used.
func NewIngestor(mapper Mapper, client storage.Client, bucket string, cfg Config, log *zap.Logger) *Ingestor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Ingestor{mapper: mapper, client: client, bucket: bucket, cfg: cfg, logger: log}
}

// IngestFeed maps every room of the feed read from r on behalf of source.
// A room that fails to map is counted and logged and does not stop the feed;
// a malformed document or a cancelled context does.
func (i *Ingestor) IngestFeed(ctx context.Context, r io.Reader, source string, opts ...rooms.MapOption) (Summary, error) {
	sum := Summary{Source: source}
	if strings.TrimSpace(source) == "" {
		return sum, fmt.Errorf("ingest feed: source must not be empty")
	}

	l := logger.ForFeed(i.logger, source, "")
	err := feed.NewParser(r).Parse(func(rec feed.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum.Rooms++

		hotelID := rec.HotelID
		if hotelID == "" {
			hotelID = i.cfg.DefaultHotel
		}
		roomID := rec.SourceID
		if roomID == "" {
			roomID = rec.Room.Name
		}
		if hotelID == "" {
			l.Warn("room outside any hotel and no default hotel configured", zap.String("room", rec.Room.Name))
			sum.Skipped++
			return nil
		}

		res, err := i.mapper.MapRoom(ctx, hotelID, roomID, source, rec.Room, opts...)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.Warn("room mapping failed", zap.String("hotel", hotelID), zap.String("room", roomID), zap.Error(err))
			sum.Failed++
		case res.Skipped:
			sum.Skipped++
		case res.Created:
			sum.Created++
		default:
			sum.Updated++
		}
		sum.ConflictsOpened += res.ConflictsOpened
		return nil
	})

	metrics.ObserveFeed(source, err)
	if err != nil {
		sum.Error = err.Error()
		return sum, fmt.Errorf("ingest feed from %s: %w", source, err)
	}
	l.Info("feed ingested",
		zap.Int("rooms", sum.Rooms),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return sum, nil
}

// IngestObject reads one feed object from the bucket.
func (i *Ingestor) IngestObject(ctx context.Context, key, source string, opts ...rooms.MapOption) (Summary, error) {
	if i.client == nil {
		return Summary{Source: source, Object: key}, fmt.Errorf("ingest %s: no object storage configured", key)
	}
	obj, err := i.client.GetObject(ctx, i.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		logger.ForFeed(i.logger, source, key).Warn("Feed object unreadable", zap.Error(err))
		return Summary{Source: source, Object: key, Error: err.Error()}, fmt.Errorf("open %s: %w", key, err)
	}
	defer obj.Close()

	sum, err := i.IngestFeed(ctx, obj, source, opts...)
	sum.Object = key
	return sum, err
}

// IngestPrefix ingests every .xml object under prefix, Workers at a time.
// The source of each object is the first path segment below prefix, or the
// file name without extension for objects directly under it. One failing
// object does not stop the others; their errors are joined.
func (i *Ingestor) IngestPrefix(ctx context.Context, prefix string, opts ...rooms.MapOption) ([]Summary, error) {
	if i.client == nil {
		return nil, fmt.Errorf("ingest prefix %s: no object storage configured", prefix)
	}

	keys, err := storage.ListKeys(ctx, i.client, i.bucket, prefix, ".xml")
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, len(keys))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)
	for idx, key := range keys {
		g.Go(func() error {
			source := SourceFromKey(prefix, key)
			sum, err := i.IngestObject(gctx, key, source, opts...)
			summaries[idx] = sum
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summaries, err
	}
	return summaries, errors.Join(errs...)
}

// SourceFromKey derives the supplier name from an object key below prefix:
// "incoming/provider_a/2025-03-01.xml" and "incoming/provider_a.xml" both
// yield "provider_a".
func SourceFromKey(prefix, key string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
	if dir, _, ok := strings.Cut(rel, "/"); ok && dir != "" {
		return dir
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}
