package service

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func canonicalHash(canonical string) string {
	sum := sha512.Sum512([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func TestSignatureVerifier_Sign_SortsKeysAndExcludesHash(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	payload := map[string]string{
		"status":    "Paid",
		"reference": "ev-1-42",
		"amount":    "25.00",
		"hash":      "should-be-excluded",
	}

	got := v.Sign(payload, "secret")
	want := canonicalHash("amount=25.00&reference=ev-1-42&status=Paidsecret")
	assert.Equal(t, want, got)
}

func TestSignatureVerifier_Verify_RoundTrip(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	payload := map[string]string{
		"reference": "ev-1-42",
		"status":    "Paid",
		"poll_url":  "https://gateway.example.com/poll/abc",
	}

	sig := v.Sign(payload, "shared-secret")
	assert.True(t, v.Verify(payload, sig, "shared-secret"))
}

func TestSignatureVerifier_Verify_CaseInsensitive(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	payload := map[string]string{"reference": "ev-1-42", "status": "Paid"}
	sig := v.Sign(payload, "secret")

	assert.True(t, v.Verify(payload, strings.ToUpper(sig), "secret"))
}

func TestSignatureVerifier_Verify_FlippedPayloadValue(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	payload := map[string]string{"reference": "ev-1-42", "status": "Paid"}
	sig := v.Sign(payload, "secret")

	tampered := map[string]string{"reference": "ev-1-42", "status": "Cancelled"}
	assert.False(t, v.Verify(tampered, sig, "secret"))
}

func TestSignatureVerifier_Verify_WrongSecret(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	payload := map[string]string{"reference": "ev-1-42", "status": "Paid"}
	sig := v.Sign(payload, "secret")

	assert.False(t, v.Verify(payload, sig, "Secret"))
	assert.False(t, v.Verify(payload, sig, "secret2"))
}

func TestSignatureVerifier_Verify_MalformedInput(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	payload := map[string]string{"reference": "ev-1-42"}
	sig := v.Sign(payload, "secret")

	assert.False(t, v.Verify(nil, sig, "secret"), "empty payload")
	assert.False(t, v.Verify(payload, "", "secret"), "empty signature")
	assert.False(t, v.Verify(payload, sig, ""), "empty secret")
	assert.False(t, v.Verify(payload, "deadbeef", "secret"), "truncated signature")
}

func TestSignatureVerifier_SignatureFieldCaseInsensitiveExclusion(t *testing.T) {
	v := NewSHA512SignatureVerifier()

	with := map[string]string{"reference": "r", "HASH": "xyz"}
	without := map[string]string{"reference": "r"}

	assert.Equal(t, v.Sign(without, "s"), v.Sign(with, "s"))
}
