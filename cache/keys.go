package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Typed cache-key constructors. Each derivation the engines memoize gets its
// own namespace and TTL so policies can be tuned per purpose without string
// literals scattered through the code.

// TTLs per namespace.
const (
	TTLDiscoveredDocs     = 7 * 24 * time.Hour
	TTLExtractedEndpoints = 14 * 24 * time.Hour
	TTLEvaluation         = 14 * 24 * time.Hour
	TTLRawDocPage         = 3 * 24 * time.Hour
	// Negative or thin web-discovery results are cached briefly so repeated
	// queries do not hammer the external search provider.
	TTLDiscoveredSearch = 15 * time.Minute
)

var namespaces = map[string]bool{
	"discoveredDocs":     true,
	"extractedEndpoints": true,
	"evaluation":         true,
	"rawDocPage":         true,
	"discoveredSearch":   true,
}

// ValidNamespace reports whether ns is a known cache namespace.
func ValidNamespace(ns string) bool { return namespaces[ns] }

// DiscoveredDocsKey caches the joined documentation corpus for an API.
func DiscoveredDocsKey(apiID string) string {
	return "discoveredDocs:" + apiID
}

// ExtractedEndpointsKey caches the structured endpoint list for an API.
func ExtractedEndpointsKey(apiID string) string {
	return "extractedEndpoints:" + apiID
}

// EvaluationKey caches the integration-guide evaluation for an API.
func EvaluationKey(apiID string) string {
	return "evaluation:" + apiID
}

// RawDocPageKey caches a single rendered documentation page.
func RawDocPageKey(url string) string {
	return "rawDocPage:" + url
}

// DiscoveredSearchKey caches a web-discovery search result, keyed by a hash
// of the normalized query.
func DiscoveredSearchKey(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return "discoveredSearch:" + hex.EncodeToString(h[:16])
}
