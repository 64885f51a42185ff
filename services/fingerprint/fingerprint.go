// Package fingerprint derives a stable device identifier from client-supplied
// request metadata. The fingerprint is a coarse signal for casual
// session-hijack detection only: the inputs are attacker-controlled headers,
// so it is not an anti-spoofing control and must not be treated as one.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Generate hashes the client identifier string, language preference and
// encoding preference in fixed order. Identical inputs always yield the
// identical fingerprint.
func Generate(userAgent, acceptLanguage, acceptEncoding string) string {
	hash := sha256.Sum256([]byte(userAgent + "|" + acceptLanguage + "|" + acceptEncoding))
	return hex.EncodeToString(hash[:])
}

// FromRequest computes the fingerprint for an incoming request.
func FromRequest(r *http.Request) string {
	return Generate(
		r.Header.Get("User-Agent"),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
	)
}
