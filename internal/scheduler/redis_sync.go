package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
	"github.com/MrSnakeDoc/deferlink/internal/index"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

// LinkSource lists mirrored links (the Redis store in production).
type LinkSource interface {
	GetAllLinks(ctx context.Context) ([]domain.Link, error)
}

// RedisSyncer hydrates the link registry from Redis on startup
type RedisSyncer struct {
	source LinkSource
	links  *index.LinkRegistry
	logger logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	source LinkSource,
	links *index.LinkRegistry,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		source: source,
		links:  links,
		logger: log,
	}
}

// Sync loads links from Redis into the registry
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing links from redis to memory")

	links, err := rs.source.GetAllLinks(ctx)
	if err != nil {
		return err
	}

	if len(links) == 0 {
		rs.logger.Info("no links found in redis")
		return nil
	}

	_, inserted := rs.links.Upsert(links)

	rs.logger.Info("synced links from redis",
		logger.Int("count", len(links)),
		logger.Int("new", inserted))

	return nil
}
