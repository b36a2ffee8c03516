package redis

import "fmt"

const (
	// KeyPrefixLink is the prefix for link keys
	KeyPrefixLink = "deferlink:link:"
	// KeySuffixCounters is appended to a link key for its counters hash
	KeySuffixCounters = ":counters"
	// KeyAllLinks is the key for the set of all link IDs
	KeyAllLinks = "deferlink:links:all"

	fieldClicks   = "clicks"
	fieldInstalls = "installs"
)

// LinkKey returns the Redis key holding the JSON of a link
func LinkKey(id string) string {
	return KeyPrefixLink + id
}

// CountersKey returns the Redis hash key holding the clicks/installs of a link
func CountersKey(id string) string {
	return KeyPrefixLink + id + KeySuffixCounters
}

// AllLinksKey returns the key for the set of all link IDs
func AllLinksKey() string {
	return KeyAllLinks
}

// ExtractLinkID extracts the link ID from a link key
func ExtractLinkID(key string) (string, error) {
	if len(key) <= len(KeyPrefixLink) || key[:len(KeyPrefixLink)] != KeyPrefixLink {
		return "", fmt.Errorf("invalid link key: %s", key)
	}
	return key[len(KeyPrefixLink):], nil
}
