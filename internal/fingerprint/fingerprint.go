// Package fingerprint derives the heuristic device identifier used to
// correlate a link click with a later first-open check from the same device.
//
// It is a best-effort correlation key, not an authentication mechanism: every
// device behind one NAT with the same browser build shares a fingerprint.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Unknown replaces a missing user agent or client IP before hashing.
const Unknown = "unknown"

// Generate returns the lowercase hex SHA-256 of "<userAgent>:<clientIP>".
// Requests with neither signal all collide on the same value.
func Generate(userAgent, clientIP string) string {
	if userAgent == "" {
		userAgent = Unknown
	}
	if clientIP == "" {
		clientIP = Unknown
	}
	sum := sha256.Sum256([]byte(userAgent + ":" + clientIP))
	return hex.EncodeToString(sum[:])
}
