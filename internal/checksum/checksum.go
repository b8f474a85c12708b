// Package checksum fingerprints stored documents. The digest doubles as the
// HTTP entity tag for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Match reports whether an If-Match value admits the current digest. An
// empty value or "*" matches anything; entity tags may be quoted, weak or a
// comma-separated list.
func Match(ifMatch, current string) bool {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	for _, tag := range strings.Split(ifMatch, ",") {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == current {
			return true
		}
	}
	return false
}
