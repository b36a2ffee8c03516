package index

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
)

// maxIDAttempts bounds the retry loop on an ID collision, which with 128 random
// bits only happens when the random source is broken.
const maxIDAttempts = 8

// LinkRegistry is the authoritative in-memory store of links and their counters.
// Every getter returns copies; the stored *domain.Link never leaves the lock.
type LinkRegistry struct {
	mu         sync.RWMutex
	links      map[string]*domain.Link // ID -> Link
	lastReload time.Time               // Timestamp of last Upsert from an external source
	now        func() time.Time
	newID      func() (string, error)
}

// NewLinkRegistry creates an empty registry.
func NewLinkRegistry() *LinkRegistry {
	return &LinkRegistry{
		links: make(map[string]*domain.Link),
		now:   time.Now,
		newID: randomID,
	}
}

// WithClock overrides the creation timestamp source. Used by tests.
func (r *LinkRegistry) WithClock(now func() time.Time) *LinkRegistry {
	r.now = now
	return r
}

// randomID returns 16 random bytes as 32 lowercase hex characters.
func randomID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// Create validates spec and stores a new link with zeroed counters.
func (r *LinkRegistry) Create(spec domain.LinkSpec) (domain.Link, error) {
	if err := spec.Validate(); err != nil {
		return domain.Link{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := r.newID()
		if err != nil {
			return domain.Link{}, err
		}
		if _, taken := r.links[id]; taken {
			continue
		}
		link := domain.NewLink(id, spec, r.now())
		r.links[id] = &link
		return link.Clone(), nil
	}
	return domain.Link{}, fmt.Errorf("failed to allocate a unique link id after %d attempts", maxIDAttempts)
}

// Get retrieves a link by ID
func (r *LinkRegistry) Get(id string) (domain.Link, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[id]
	if !ok {
		return domain.Link{}, false
	}
	return link.Clone(), true
}

// RecordClick increments the click counter and returns the updated link.
func (r *LinkRegistry) RecordClick(id string) (domain.Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return domain.Link{}, false
	}
	link.Clicks++
	return link.Clone(), true
}

// RecordInstall increments the install counter if the link still exists.
// A link cleared since the click is not an error; it reports false.
func (r *LinkRegistry) RecordInstall(id string) (domain.Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return domain.Link{}, false
	}
	link.Installs++
	return link.Clone(), true
}

// All returns a snapshot of every link, oldest first.
func (r *LinkRegistry) All() []domain.Link {
	r.mu.RLock()
	links := make([]domain.Link, 0, len(r.links))
	for _, link := range r.links {
		links = append(links, link.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID < links[j].ID
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links
}

// Upsert merges links from an external source (seed file, Redis).
// New IDs are inserted as-is. Known IDs take the incoming attributes, and each
// counter keeps the larger of the two values so counters never go backwards.
// Returns copies of the links as stored after the merge, and how many were new.
func (r *LinkRegistry) Upsert(links []domain.Link) ([]domain.Link, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := make([]domain.Link, 0, len(links))
	inserted := 0
	for _, in := range links {
		if in.ID == "" {
			continue
		}
		in = in.Clone()
		if in.CreatedAt.IsZero() {
			in.CreatedAt = r.now()
		}

		existing, ok := r.links[in.ID]
		if !ok {
			stored := in
			r.links[in.ID] = &stored
			merged = append(merged, in.Clone())
			inserted++
			continue
		}

		in.Clicks = max(in.Clicks, existing.Clicks)
		in.Installs = max(in.Installs, existing.Installs)
		in.CreatedAt = existing.CreatedAt
		*existing = in
		merged = append(merged, in.Clone())
	}
	r.lastReload = r.now()
	return merged, inserted
}

// Clear removes every link.
func (r *LinkRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links = make(map[string]*domain.Link)
}

// Count returns the number of links in the registry
func (r *LinkRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.links)
}

// LastReload returns the timestamp of the last Upsert.
func (r *LinkRegistry) LastReload() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastReload
}
