package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
	"github.com/MrSnakeDoc/deferlink/internal/index"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
	"github.com/MrSnakeDoc/deferlink/internal/sources/seed"
)

// LinkSaver persists a batch of links (the Redis store in production).
type LinkSaver interface {
	SaveLinksMany(ctx context.Context, links []domain.Link) error
}

// SeedReloader handles periodic reloading of the links seed file
type SeedReloader struct {
	loader        *seed.Loader
	mapper        *seed.Mapper
	links         *index.LinkRegistry
	saver         LinkSaver
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
	lastErr       atomic.Value // string
}

// NewSeedReloader creates a new seed reloader. saver may be nil.
func NewSeedReloader(
	seedFile string,
	links *index.LinkRegistry,
	saver LinkSaver,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SeedReloader {
	sr := &SeedReloader{
		loader:        seed.NewLoader(seedFile),
		mapper:        seed.NewMapper(),
		links:         links,
		saver:         saver,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
	sr.lastErr.Store("")
	return sr
}

// Start loads the seed file once, then reloads it on every tick or manual trigger.
// A broken seed file at start-up is fatal; later failures keep the previous links.
func (sr *SeedReloader) Start(ctx context.Context) error {
	if err := sr.Reload(ctx); err != nil {
		return fmt.Errorf("initial seed load failed: %w", err)
	}

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sr.reloadLogged(ctx)
			case <-sr.manualTrigger:
				sr.logger.Info("manual reload triggered")
				sr.reloadLogged(ctx)
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (sr *SeedReloader) Stop() {
	close(sr.stopCh)
}

// LastError returns the message of the last failed reload, or "".
func (sr *SeedReloader) LastError() string {
	return sr.lastErr.Load().(string)
}

func (sr *SeedReloader) reloadLogged(ctx context.Context) {
	if err := sr.Reload(ctx); err != nil {
		sr.logger.Error("failed to reload seed links", logger.Error(err))
	}
}

// Reload loads the seed file and merges it into the registry and the mirror.
func (sr *SeedReloader) Reload(ctx context.Context) error {
	err := sr.reload(ctx)
	if err != nil {
		sr.lastErr.Store(err.Error())
	} else {
		sr.lastErr.Store("")
	}
	return err
}

func (sr *SeedReloader) reload(ctx context.Context) error {
	sr.logger.Info("reloading seed links", logger.String("file", sr.loader.Path()))

	file, err := sr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load seed links: %w", err)
	}

	links, err := sr.mapper.MapLinks(file)
	if err != nil {
		return fmt.Errorf("failed to map seed links: %w", err)
	}

	merged, inserted := sr.links.Upsert(links)
	sr.logger.Info("seed links loaded",
		logger.Int("count", len(links)),
		logger.Int("new", inserted))

	// Redis is best effort; the registry is the primary source.
	// Mirror the merged copies so createdAt stays the first one seen.
	if sr.saver != nil {
		if err := sr.saver.SaveLinksMany(ctx, merged); err != nil {
			sr.logger.Warn("failed to save seed links to redis", logger.Error(err))
		}
	}

	return nil
}
