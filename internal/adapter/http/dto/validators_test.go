package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := LoginRequest{
		Username: "  operator  ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "operator", req.Username)
	assert.Equal(t, "pass1234", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreatePaymentRequest{
		EventID: "conf-2026",
		Email:   "dana@example.com",
		Name:    "Dana <script>alert('x')</script>",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Name, "&lt;script&gt;")
	assert.NotContains(t, req.Name, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	phone := "  0771234567  "
	req := CreatePaymentRequest{
		EventID: "conf-2026",
		Email:   "dana@example.com",
		Name:    "Dana",
		Phone:   &phone,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "0771234567", *req.Phone)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreatePaymentRequest{
		EventID: "conf-2026",
		Email:   "dana@example.com",
		Name:    "Dana",
		Phone:   nil,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.Phone)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"conf-2026",
		"EVENT_002",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"conf 2026",   // space
		"conf<2026>",  // angle brackets
		"conf;DROP",   // semicolon
		"",            // empty
		"hello world", // space
		"conf\n2026",  // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestSafeID_BindingTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("safe_id", validateSafeID))

	assert.NoError(t, v.Var("conf-2026", "safe_id"))
	assert.Error(t, v.Var("conf 2026; DROP TABLE events", "safe_id"))
}
