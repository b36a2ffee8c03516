package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Link is a registered trackable deep link.
//
// The registry owns the canonical value; everything handed out of it is a copy,
// so callers may read a Link freely without holding any lock.
type Link struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is a 128-bit random token rendered as 32 lowercase hex characters.
	// Seeded links may carry an operator-chosen ID instead.
	ID string `json:"id"`

	// ─────────────────────────────
	// Targets
	// ─────────────────────────────

	// OriginalURL is the content the app should open after install.
	OriginalURL string `json:"originalUrl"`

	// AppScheme is the URI scheme the app registers, e.g. "myapp".
	AppScheme string `json:"appScheme"`

	// FallbackURL is where the browser goes when the app did not open.
	FallbackURL string `json:"fallbackUrl,omitempty"`

	// ─────────────────────────────
	// Attribution tags
	// ─────────────────────────────

	Campaign string `json:"campaign,omitempty"`
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`

	// CustomData is an opaque payload passed through verbatim.
	CustomData json.RawMessage `json:"customData,omitempty"`

	// ─────────────────────────────
	// Counters (monotonic)
	// ─────────────────────────────

	Clicks   int64 `json:"clicks"`
	Installs int64 `json:"installs"`

	CreatedAt time.Time `json:"createdAt"`
}

// LinkSpec is the caller input for creating a link.
type LinkSpec struct {
	OriginalURL string          `json:"originalUrl"`
	AppScheme   string          `json:"appScheme"`
	FallbackURL string          `json:"fallbackUrl,omitempty"`
	Campaign    string          `json:"campaign,omitempty"`
	Source      string          `json:"source,omitempty"`
	Medium      string          `json:"medium,omitempty"`
	CustomData  json.RawMessage `json:"customData,omitempty"`
}

// Validate reports the required fields that are missing, then an app scheme
// the redirect page would refuse to open.
func (s LinkSpec) Validate() error {
	var missing []string
	if strings.TrimSpace(s.OriginalURL) == "" {
		missing = append(missing, "originalUrl")
	}
	if strings.TrimSpace(s.AppScheme) == "" {
		missing = append(missing, "appScheme")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	if !ValidAppScheme(s.AppScheme) {
		return &ValidationError{Invalid: []string{"appScheme"}}
	}
	return nil
}

// NewLink builds a link from a validated spec with zeroed counters.
func NewLink(id string, spec LinkSpec, createdAt time.Time) Link {
	return Link{
		ID:          id,
		OriginalURL: spec.OriginalURL,
		AppScheme:   spec.AppScheme,
		FallbackURL: spec.FallbackURL,
		Campaign:    spec.Campaign,
		Source:      spec.Source,
		Medium:      spec.Medium,
		CustomData:  cloneRaw(spec.CustomData),
		CreatedAt:   createdAt,
	}
}

// Clone returns a deep copy; CustomData is the only field sharing memory.
func (l Link) Clone() Link {
	l.CustomData = cloneRaw(l.CustomData)
	return l
}

// Attribution is the click-time snapshot handed back on a deferred lookup.
type Attribution struct {
	LinkID      string          `json:"linkId"`
	OriginalURL string          `json:"originalUrl"`
	Campaign    string          `json:"campaign,omitempty"`
	Source      string          `json:"source,omitempty"`
	Medium      string          `json:"medium,omitempty"`
	CustomData  json.RawMessage `json:"customData,omitempty"`
	ClickID     string          `json:"clickId"`
	ClickedAt   time.Time       `json:"clickedAt"`
}

// Snapshot copies the attribution-relevant fields of the link as they are now.
// Later mutation of the link does not reach the snapshot.
func (l Link) Snapshot(clickID string, clickedAt time.Time) Attribution {
	return Attribution{
		LinkID:      l.ID,
		OriginalURL: l.OriginalURL,
		Campaign:    l.Campaign,
		Source:      l.Source,
		Medium:      l.Medium,
		CustomData:  cloneRaw(l.CustomData),
		ClickID:     clickID,
		ClickedAt:   clickedAt,
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
