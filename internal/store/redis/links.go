// Package redis mirrors registered links and their counters into Redis so a
// restarted instance can hydrate its registry. Pending attributions are never
// written here.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
)

// Store handles Redis operations for links
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection, used by /readyz and /infra.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveLink stores the link attributes and creates its counters hash if missing.
// Existing counters are left alone; they only move through the Increment calls.
func (s *Store) SaveLink(ctx context.Context, link domain.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, LinkKey(link.ID), data, 0)
	pipe.SAdd(ctx, AllLinksKey(), link.ID)
	pipe.HSetNX(ctx, CountersKey(link.ID), fieldClicks, link.Clicks)
	pipe.HSetNX(ctx, CountersKey(link.ID), fieldInstalls, link.Installs)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save link %s: %w", link.ID, err)
	}
	return nil
}

// SaveLinksMany stores multiple links (bulk operation, used after a seed reload)
func (s *Store) SaveLinksMany(ctx context.Context, links []domain.Link) error {
	pipe := s.client.Pipeline()

	for _, link := range links {
		data, err := json.Marshal(link)
		if err != nil {
			return fmt.Errorf("failed to marshal link %s: %w", link.ID, err)
		}
		pipe.Set(ctx, LinkKey(link.ID), data, 0)
		pipe.SAdd(ctx, AllLinksKey(), link.ID)
		pipe.HSetNX(ctx, CountersKey(link.ID), fieldClicks, link.Clicks)
		pipe.HSetNX(ctx, CountersKey(link.ID), fieldInstalls, link.Installs)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save links: %w", err)
	}
	return nil
}

// IncrementClicks adds one click to the mirrored counters
func (s *Store) IncrementClicks(ctx context.Context, id string) error {
	if err := s.client.HIncrBy(ctx, CountersKey(id), fieldClicks, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	return nil
}

// IncrementInstalls adds one install to the mirrored counters
func (s *Store) IncrementInstalls(ctx context.Context, id string) error {
	if err := s.client.HIncrBy(ctx, CountersKey(id), fieldInstalls, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment installs: %w", err)
	}
	return nil
}

// GetLink retrieves a link by ID with its current counters
func (s *Store) GetLink(ctx context.Context, id string) (domain.Link, error) {
	data, err := s.client.Get(ctx, LinkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Link{}, domain.LinkNotFound(id)
		}
		return domain.Link{}, fmt.Errorf("failed to get link: %w", err)
	}

	counters, err := s.client.HGetAll(ctx, CountersKey(id)).Result()
	if err != nil {
		return domain.Link{}, fmt.Errorf("failed to get counters: %w", err)
	}

	return decodeLink(data, counters)
}

// GetAllLinks retrieves every mirrored link
func (s *Store) GetAllLinks(ctx context.Context) ([]domain.Link, error) {
	ids, err := s.client.SMembers(ctx, AllLinksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link IDs: %w", err)
	}

	links := make([]domain.Link, 0, len(ids))
	for _, id := range ids {
		link, err := s.GetLink(ctx, id)
		if err != nil {
			// Skip links that couldn't be retrieved
			continue
		}
		links = append(links, link)
	}
	return links, nil
}

// DeleteAllLinks removes every mirrored link, its counters and the ID set
func (s *Store) DeleteAllLinks(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, AllLinksKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get link IDs: %w", err)
	}

	keys := make([]string, 0, len(ids)*2+1)
	for _, id := range ids {
		keys = append(keys, LinkKey(id), CountersKey(id))
	}
	keys = append(keys, AllLinksKey())

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	return nil
}

// decodeLink rebuilds a link from its JSON and counters hash. Counters in the
// hash win over the ones frozen into the JSON at save time.
func decodeLink(data []byte, counters map[string]string) (domain.Link, error) {
	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return domain.Link{}, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	if v, ok := counters[fieldClicks]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.Link{}, fmt.Errorf("invalid clicks counter for %s: %w", link.ID, err)
		}
		link.Clicks = n
	}
	if v, ok := counters[fieldInstalls]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.Link{}, fmt.Errorf("invalid installs counter for %s: %w", link.ID, err)
		}
		link.Installs = n
	}
	return link, nil
}
