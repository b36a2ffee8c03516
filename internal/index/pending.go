package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
)

// PendingAttribution is a click waiting for the app's first-open check.
type PendingAttribution struct {
	Fingerprint string
	Attribution domain.Attribution
	CreatedAt   time.Time
}

// fresh is the single freshness predicate shared by TakeIfFresh and Sweep.
func (p PendingAttribution) fresh(ttl time.Duration, now time.Time) bool {
	return now.Sub(p.CreatedAt) < ttl
}

// PendingStore maps fingerprints to at most one pending attribution each.
//
// Every operation runs under one mutex, so "check TTL then delete" in
// TakeIfFresh is indivisible: of two concurrent lookups for the same
// fingerprint, exactly one gets the record.
type PendingStore struct {
	mu      sync.Mutex
	entries map[string]PendingAttribution
	now     func() time.Time
}

// NewPendingStore creates an empty store stamping records with time.Now.
func NewPendingStore() *PendingStore {
	return &PendingStore{
		entries: make(map[string]PendingAttribution),
		now:     time.Now,
	}
}

// WithClock overrides the clock used by Put. Used by tests.
func (s *PendingStore) WithClock(now func() time.Time) *PendingStore {
	s.now = now
	return s
}

// Put stores attr for fingerprint, replacing any earlier click (last click wins).
func (s *PendingStore) Put(fingerprint string, attr domain.Attribution) PendingAttribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := PendingAttribution{
		Fingerprint: fingerprint,
		Attribution: attr,
		CreatedAt:   s.now(),
	}
	s.entries[fingerprint] = p
	return p
}

// TakeIfFresh removes and returns the record for fingerprint when it is younger
// than ttl at now. An expired record is deleted and reported absent.
func (s *PendingStore) TakeIfFresh(fingerprint string, ttl time.Duration, now time.Time) (PendingAttribution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[fingerprint]
	if !ok {
		return PendingAttribution{}, false
	}
	delete(s.entries, fingerprint)
	if !p.fresh(ttl, now) {
		return PendingAttribution{}, false
	}
	return p, true
}

// Sweep deletes every record that is no longer fresh at now and returns how
// many were removed.
func (s *PendingStore) Sweep(ttl time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for fp, p := range s.entries {
		if !p.fresh(ttl, now) {
			delete(s.entries, fp)
			removed++
		}
	}
	return removed
}

// Clear removes every pending record.
func (s *PendingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]PendingAttribution)
}

// Count returns the number of stored records, expired ones included.
func (s *PendingStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
