// Package attribution correlates a link click with a later first-open check
// from the same device and keeps per-link conversion counters.
//
// The Engine composes three collaborators: the link registry, the pending
// attribution store, and the fingerprint function. Each store mutation is its
// own atomic step; no operation needs both stores locked at once.
package attribution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/deferlink/internal/domain"
	"github.com/MrSnakeDoc/deferlink/internal/fingerprint"
	"github.com/MrSnakeDoc/deferlink/internal/index"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

// DefaultSessionTTL is how long a click stays matchable.
const DefaultSessionTTL = 24 * time.Hour

// RedirectPath is the path segment trackable URLs are served under.
const RedirectPath = "/link/"

// LinkMirror receives best-effort copies of link writes (Redis in production).
// Failures are logged and never fail the request.
type LinkMirror interface {
	SaveLink(ctx context.Context, link domain.Link) error
	IncrementClicks(ctx context.Context, id string) error
	IncrementInstalls(ctx context.Context, id string) error
	DeleteAllLinks(ctx context.Context) error
}

// RequestContext carries the unauthenticated signals of an inbound request.
type RequestContext struct {
	UserAgent string
	ClientIP  string
}

// Options configures an Engine. Zero values pick the defaults.
type Options struct {
	SessionTTL             time.Duration
	AllowCustomFingerprint bool
	Mirror                 LinkMirror
	Logger                 logger.Logger
	Now                    func() time.Time
	NewClickID             func() string
}

// Engine implements link registration, click recording, deferred attribution
// and analytics.
type Engine struct {
	links                  *index.LinkRegistry
	pending                *index.PendingStore
	mirror                 LinkMirror
	logger                 logger.Logger
	ttl                    time.Duration
	allowCustomFingerprint bool
	now                    func() time.Time
	newClickID             func() string
}

// NewEngine wires an engine over the two stores.
func NewEngine(links *index.LinkRegistry, pending *index.PendingStore, opts Options) *Engine {
	e := &Engine{
		links:                  links,
		pending:                pending,
		mirror:                 opts.Mirror,
		logger:                 opts.Logger,
		ttl:                    opts.SessionTTL,
		allowCustomFingerprint: opts.AllowCustomFingerprint,
		now:                    opts.Now,
		newClickID:             opts.NewClickID,
	}
	if e.ttl <= 0 {
		e.ttl = DefaultSessionTTL
	}
	if e.logger == nil {
		e.logger = logger.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newClickID == nil {
		e.newClickID = uuid.NewString
	}
	e.logger = e.logger.With(logger.String("component", "attribution"))
	return e
}

// SessionTTL returns the configured pending-attribution lifetime.
func (e *Engine) SessionTTL() time.Duration { return e.ttl }

// Registration is the result of RegisterLink.
type Registration struct {
	LinkID       string `json:"linkId"`
	TrackableURL string `json:"trackableUrl"`
	OriginalURL  string `json:"originalUrl"`
	AppScheme    string `json:"appScheme"`
}

// RegisterLink creates a link and builds its trackable URL under baseURL
// (scheme://host as seen by the caller).
func (e *Engine) RegisterLink(ctx context.Context, spec domain.LinkSpec, baseURL string) (Registration, error) {
	link, err := e.links.Create(spec)
	if err != nil {
		return Registration{}, err
	}

	e.logger.Info("link registered",
		logger.String("link_id", link.ID),
		logger.String("app_scheme", link.AppScheme),
		logger.String("campaign", link.Campaign))

	if e.mirror != nil {
		if err := e.mirror.SaveLink(ctx, link); err != nil {
			e.logger.Warn("failed to mirror link",
				logger.String("link_id", link.ID),
				logger.Error(err))
		}
	}

	return Registration{
		LinkID:       link.ID,
		TrackableURL: TrackableURL(baseURL, link.ID),
		OriginalURL:  link.OriginalURL,
		AppScheme:    link.AppScheme,
	}, nil
}

// TrackableURL joins baseURL, the redirect path and the link ID.
func TrackableURL(baseURL, linkID string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL + RedirectPath + linkID
}

// Redirect is what the browser-facing page needs after a click.
type Redirect struct {
	AppURL      string
	FallbackURL string
	Fingerprint string
	Pending     index.PendingAttribution
}

// RecordClickAndRedirect counts the click, stores a pending attribution for the
// caller's fingerprint, and returns the app URI plus fallback URL.
func (e *Engine) RecordClickAndRedirect(ctx context.Context, linkID string, req RequestContext) (Redirect, error) {
	link, ok := e.links.RecordClick(linkID)
	if !ok {
		return Redirect{}, domain.LinkNotFound(linkID)
	}

	if e.mirror != nil {
		if err := e.mirror.IncrementClicks(ctx, linkID); err != nil {
			e.logger.Warn("failed to mirror click",
				logger.String("link_id", linkID),
				logger.Error(err))
		}
	}

	fp := e.Fingerprint(req)
	pending := e.pending.Put(fp, link.Snapshot(e.newClickID(), e.now()))

	e.logger.Info("click recorded",
		logger.String("link_id", linkID),
		logger.String("click_id", pending.Attribution.ClickID),
		logger.String("fingerprint", fp),
		logger.Int64("clicks", link.Clicks))

	return Redirect{
		AppURL:      link.AppURL(),
		FallbackURL: link.FallbackURL,
		Fingerprint: fp,
		Pending:     pending,
	}, nil
}

// Resolution is the answer to a first-open check.
type Resolution struct {
	HasDeepLink  bool                `json:"hasDeepLink"`
	DeepLinkData *domain.Attribution `json:"deepLinkData,omitempty"`
	Timestamp    *time.Time          `json:"timestamp,omitempty"`
}

// ResolveDeferredAttribution consumes the pending attribution for the caller,
// if one exists and is fresh. A miss is a normal outcome, not an error.
//
// explicitFingerprint, when non-empty and allowed, replaces the derived one.
// Anyone who learns another device's fingerprint can claim its attribution
// this way, so every use is logged.
func (e *Engine) ResolveDeferredAttribution(ctx context.Context, req RequestContext, explicitFingerprint string) Resolution {
	fp := e.resolveFingerprint(req, explicitFingerprint)
	now := e.now()

	p, ok := e.pending.TakeIfFresh(fp, e.ttl, now)
	if !ok {
		e.logger.Debug("no deferred deep link",
			logger.String("fingerprint", fp))
		return Resolution{HasDeepLink: false}
	}

	if _, found := e.links.RecordInstall(p.Attribution.LinkID); !found {
		e.logger.Info("install attributed to a link that no longer exists",
			logger.String("link_id", p.Attribution.LinkID))
	} else if e.mirror != nil {
		if err := e.mirror.IncrementInstalls(ctx, p.Attribution.LinkID); err != nil {
			e.logger.Warn("failed to mirror install",
				logger.String("link_id", p.Attribution.LinkID),
				logger.Error(err))
		}
	}

	e.logger.Info("deferred deep link resolved",
		logger.String("link_id", p.Attribution.LinkID),
		logger.String("click_id", p.Attribution.ClickID),
		logger.Duration("click_age", now.Sub(p.CreatedAt)))

	data := p.Attribution
	return Resolution{
		HasDeepLink:  true,
		DeepLinkData: &data,
		Timestamp:    &now,
	}
}

func (e *Engine) resolveFingerprint(req RequestContext, explicit string) string {
	if explicit == "" {
		return e.Fingerprint(req)
	}
	if !e.allowCustomFingerprint {
		e.logger.Warn("ignoring caller-supplied fingerprint",
			logger.String("client_ip", req.ClientIP))
		return e.Fingerprint(req)
	}
	e.logger.Warn("using caller-supplied fingerprint",
		logger.String("client_ip", req.ClientIP),
		logger.String("fingerprint", explicit))
	return explicit
}

// Fingerprint derives the device fingerprint of a request.
func (e *Engine) Fingerprint(req RequestContext) string {
	return fingerprint.Generate(req.UserAgent, req.ClientIP)
}

// Analytics reports the counters of one link.
type Analytics struct {
	LinkID         string    `json:"linkId"`
	Clicks         int64     `json:"clicks"`
	Installs       int64     `json:"installs"`
	ConversionRate string    `json:"conversionRate"`
	CreatedAt      time.Time `json:"createdAt"`
}

// GetAnalytics returns the counters and conversion rate of a link.
func (e *Engine) GetAnalytics(linkID string) (Analytics, error) {
	link, ok := e.links.Get(linkID)
	if !ok {
		return Analytics{}, domain.LinkNotFound(linkID)
	}
	return Analytics{
		LinkID:         link.ID,
		Clicks:         link.Clicks,
		Installs:       link.Installs,
		ConversionRate: ConversionRate(link.Clicks, link.Installs),
		CreatedAt:      link.CreatedAt,
	}, nil
}

// ConversionRate formats installs/clicks as a percentage with two decimals.
// Installs may exceed clicks; the rate is then above 100.
func ConversionRate(clicks, installs int64) string {
	if clicks <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(installs)/float64(clicks)*100)
}

// ListLinks returns every registered link.
func (e *Engine) ListLinks() []domain.Link {
	return e.links.All()
}

// ClearAll empties both stores and the mirror.
func (e *Engine) ClearAll(ctx context.Context) {
	e.links.Clear()
	e.pending.Clear()

	if e.mirror != nil {
		if err := e.mirror.DeleteAllLinks(ctx); err != nil {
			e.logger.Warn("failed to clear mirrored links", logger.Error(err))
		}
	}
	e.logger.Warn("all links and pending attributions cleared")
}

// Stats is a point-in-time view of store sizes.
type Stats struct {
	Links      int
	Pending    int
	LastReload time.Time
}

// Stats reports store sizes for the infra endpoint.
func (e *Engine) Stats() Stats {
	return Stats{
		Links:      e.links.Count(),
		Pending:    e.pending.Count(),
		LastReload: e.links.LastReload(),
	}
}
