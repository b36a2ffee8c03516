package seed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
)

// Mapper converts seed entries to domain.Link values
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// MapLinks validates every entry and converts it. Any invalid entry fails the
// whole file so a typo never half-applies a reload.
func (m *Mapper) MapLinks(file File) ([]domain.Link, error) {
	if len(file.Links) == 0 {
		return nil, fmt.Errorf("no links found in seed file")
	}

	now := m.now()
	seen := make(map[string]bool, len(file.Links))
	links := make([]domain.Link, 0, len(file.Links))

	for i, entry := range file.Links {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("link #%d: id is required", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("link %q: duplicate id", id)
		}
		seen[id] = true

		spec := domain.LinkSpec{
			OriginalURL: strings.TrimSpace(entry.OriginalURL),
			AppScheme:   strings.TrimSpace(entry.AppScheme),
			FallbackURL: strings.TrimSpace(entry.FallbackURL),
			Campaign:    entry.Campaign,
			Source:      entry.Source,
			Medium:      entry.Medium,
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("link %q: %w", id, err)
		}

		if len(entry.CustomData) > 0 {
			raw, err := json.Marshal(entry.CustomData)
			if err != nil {
				return nil, fmt.Errorf("link %q: customData: %w", id, err)
			}
			spec.CustomData = raw
		}

		links = append(links, domain.NewLink(id, spec, now))
	}

	return links, nil
}
