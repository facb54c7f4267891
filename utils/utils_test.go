package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToLogMessage(t *testing.T) {
	var b strings.Builder
	AddToLogMessage(&b, "[Signup API]")
	AddToLogMessage(&b, "created user")
	assert.Equal(t, "[Signup API];\ncreated user;\n", b.String())
}

func TestRequestLogNilSafe(t *testing.T) {
	var l *RequestLog
	assert.NotPanics(t, func() {
		l.Add("x")
		l.Fail("y")
	})

	l = NewRequestLog("Login API", "path", "/api/auth/login")
	l.Add("user found")
	assert.Equal(t, "[Login API];\nuser found;\n", l.String())
}

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		debug      bool
		wantStatus int
		wantError  string
		wantDetail bool
	}{
		{"conflict", errors.Wrap(apperr.Conflict("account already exists"), "signup"), false, http.StatusConflict, "account already exists", false},
		{"validation with details", apperr.Validation("invalid request").WithDetails(map[string]string{"email": "email is required"}), false, http.StatusBadRequest, "invalid request", true},
		{"untyped hidden", errors.New("mongo: connection refused"), false, http.StatusInternalServerError, "internal server error", false},
		{"untyped debug", errors.New("mongo: connection refused"), true, http.StatusInternalServerError, "internal server error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ShowInternalDetails = tt.debug
			defer func() { ShowInternalDetails = false }()

			rec := httptest.NewRecorder()
			RespondAppError(rec, NewRequestLog("Test API"), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
			_, hasDetails := body["details"]
			assert.Equal(t, tt.wantDetail, hasDetails)
		})
	}
}

func TestTokens(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tokens := NewTokens("test-secret", time.Hour, 15*time.Minute)
	tokens.Now = func() time.Time { return now }

	session, err := tokens.GenerateToken("u1", "admin", "a@x.com")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(session, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = tokens.ValidateToken(session, PurposeReset)
	assert.Error(t, err, "session token must not pass as a reset token")

	reset, err := tokens.GenerateResetToken("u1", "a@x.com", "$2a$10$hash")
	require.NoError(t, err)
	claims, err = tokens.ValidateToken(reset, PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("$2a$10$hash"), claims.PasswordHash)

	now = now.Add(16 * time.Minute)
	_, err = tokens.ValidateToken(reset, PurposeReset)
	assert.Error(t, err, "reset token expired")

	other := NewTokens("other-secret", time.Hour, time.Hour)
	_, err = other.ValidateToken(session, PurposeSession)
	assert.Error(t, err)

	_, err = NewTokens("", time.Hour, time.Hour).GenerateToken("u1", "guest", "")
	assert.Error(t, err)
}

type signupForm struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164ish"`
	Role  string `json:"role" validate:"omitempty,role"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(signupForm{Email: "a@x.com", Phone: "+91 98765-43210", Role: "Volunteer"}))

	err := ValidateStruct(signupForm{Phone: "abc", Role: "king"})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, ae.Kind)

	fields, ok := ae.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Equal(t, "phone must be a phone number", fields["phone"])
	assert.Contains(t, fields["role"], "must be one of")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
	assert.Equal(t, "+919876543210", NormalizePhone(" +91 98765-43210 "))
}
