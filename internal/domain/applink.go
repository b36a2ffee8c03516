package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// RFC 3986 scheme syntax.
var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)

// Schemes a browser executes or renders in place instead of handing off.
var blockedSchemes = map[string]struct{}{
	"javascript": {},
	"vbscript":   {},
	"data":       {},
	"blob":       {},
	"about":      {},
}

func normalizeScheme(raw string) string {
	scheme := strings.TrimSpace(raw)
	scheme = strings.TrimSuffix(scheme, "://")
	return strings.TrimSuffix(scheme, ":")
}

// ValidAppScheme reports whether raw ("myapp", "myapp:" or "myapp://") names
// a scheme the redirect page may navigate to.
func ValidAppScheme(raw string) bool {
	scheme := normalizeScheme(raw)
	if !schemeRe.MatchString(scheme) {
		return false
	}
	_, blocked := blockedSchemes[strings.ToLower(scheme)]
	return !blocked
}

// AppURL builds the URI that hands the click over to the installed app:
//
//	<scheme>://open?url=...&campaign=...&source=...&medium=...&linkId=...
//
// Absent tags encode as empty values so the app always sees every key.
// An unusable scheme (e.g. from a mirror written by an older release) yields "".
func (l Link) AppURL() string {
	if !ValidAppScheme(l.AppScheme) {
		return ""
	}
	scheme := normalizeScheme(l.AppScheme)

	var b strings.Builder
	b.Grow(len(scheme) + len(l.OriginalURL) + 96)
	b.WriteString(scheme)
	b.WriteString("://open?url=")
	b.WriteString(EscapeComponent(l.OriginalURL))
	b.WriteString("&campaign=")
	b.WriteString(EscapeComponent(l.Campaign))
	b.WriteString("&source=")
	b.WriteString(EscapeComponent(l.Source))
	b.WriteString("&medium=")
	b.WriteString(EscapeComponent(l.Medium))
	b.WriteString("&linkId=")
	b.WriteString(EscapeComponent(l.ID))
	return b.String()
}

// EscapeComponent percent-encodes s for use as a query value.
// Spaces become %20 rather than '+', which app URL parsers handle more consistently.
func EscapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
