package service

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// signatureField is the payload key carrying the signature itself; it is
// excluded from the canonical string.
const signatureField = "hash"

// SHA512SignatureVerifier implements ports.SignatureVerifier using a
// shared-secret keyed SHA-512 over canonicalized parameters.
type SHA512SignatureVerifier struct{}

// NewSHA512SignatureVerifier creates a new SHA-512 signature verifier.
func NewSHA512SignatureVerifier() *SHA512SignatureVerifier {
	return &SHA512SignatureVerifier{}
}

// Sign computes the canonical signature for a payload: all keys except the
// signature field, sorted lexicographically, joined as key=value with "&",
// with the shared secret appended, hashed with SHA-512 and hex-encoded
// (lowercase).
func (s *SHA512SignatureVerifier) Sign(payload map[string]string, secret string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if strings.EqualFold(k, signatureField) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(payload[k])
	}
	sb.WriteString(secret)

	sum := sha512.Sum512([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// Verify checks providedSignature against the canonical hash of payload.
// The comparison is case-insensitive and constant-time over the digest.
// Any missing or malformed input yields false rather than an error.
func (s *SHA512SignatureVerifier) Verify(payload map[string]string, providedSignature, secret string) bool {
	if len(payload) == 0 || providedSignature == "" || secret == "" {
		return false
	}

	expected := s.Sign(payload, secret)
	provided := strings.ToLower(providedSignature)
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
