// Package fingerprint computes content digests used to identify inputs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHasher digests arbitrary content into a stable hex string.
type ContentHasher interface {
	Sum(data []byte) string
}

// SHA256 is the default ContentHasher.
type SHA256 struct{}

// Sum returns the hex-encoded SHA-256 digest of data (64 characters).
func (SHA256) Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fields digests the fields joined with '|', one record per call.
// Formula: H(f0|f1|...|fn)
func Fields(h ContentHasher, fields ...string) string {
	return h.Sum([]byte(strings.Join(fields, "|")))
}

// Lines digests a sequence of pre-joined records separated by newlines.
// An empty sequence digests the empty string.
func Lines(h ContentHasher, lines []string) string {
	return h.Sum([]byte(strings.Join(lines, "\n")))
}
