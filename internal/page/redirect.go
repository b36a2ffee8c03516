// Package page renders the browser-facing page served for a trackable link.
//
// The page tries to open the app URI immediately and, after a fixed delay,
// falls back to the link's fallback URL or shows a failure message.
package page

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

// DefaultFallbackDelay is how long the page waits for the app to take over.
const DefaultFallbackDelay = 3 * time.Second

// FailureMessage is shown when the app did not open and no fallback exists.
const FailureMessage = "Could not open app. Please try again."

//go:embed redirect.html.tmpl
var redirectSource string

var redirectTmpl = template.Must(template.New("redirect").Parse(redirectSource))

type redirectData struct {
	AppURL         string
	FallbackURL    string
	FailureMessage string
	DelayMillis    int64
}

// RenderRedirect renders the app-open page. Values are escaped by html/template
// for their context (JS string, URL attribute), so caller-supplied URLs cannot
// break out of the page.
func RenderRedirect(appURL, fallbackURL string, delay time.Duration) ([]byte, error) {
	if delay <= 0 {
		delay = DefaultFallbackDelay
	}

	var buf bytes.Buffer
	err := redirectTmpl.Execute(&buf, redirectData{
		AppURL:         appURL,
		FallbackURL:    safeFallback(fallbackURL),
		FailureMessage: FailureMessage,
		DelayMillis:    delay.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render redirect page: %w", err)
	}
	return buf.Bytes(), nil
}

// safeFallback drops fallback URLs the browser should never navigate to from
// script, anything other than absolute http(s).
func safeFallback(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
