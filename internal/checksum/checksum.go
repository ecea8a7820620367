// Package checksum computes document checksums and their HTTP entity-tag form.
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

// ETag quotes sum for use in an ETag header.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// ParseETag returns the checksum carried by an If-Match or ETag value. Weak
// validators and surrounding quotes are stripped; "*" and "" yield "".
func ParseETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}
