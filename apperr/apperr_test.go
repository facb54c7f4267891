package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("name is required"), http.StatusBadRequest},
		{Unauthenticated("missing token"), http.StatusUnauthorized},
		{Forbidden("not allowed"), http.StatusForbidden},
		{NotFound("user not found"), http.StatusNotFound},
		{Conflict("account exists"), http.StatusConflict},
		{TooManyRequests("slow down"), http.StatusTooManyRequests},
		{Delivery(errors.New("smtp down"), "could not send code"), http.StatusBadGateway},
		{Unavailable("export disabled"), http.StatusServiceUnavailable},
		{Internal(errors.New("boom"), "database error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Kind.Status())
		})
	}
}

func TestKindOfUnwraps(t *testing.T) {
	base := Conflict("phone %s already registered", "+911234567890")

	wrapped := errors.Wrap(base, "signup")
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))

	ae, ok := As(errors.WithMessage(wrapped, "outer"))
	require.True(t, ok)
	assert.Equal(t, "phone +911234567890 already registered", ae.Message)

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindInternal))
}

func TestErrorMessage(t *testing.T) {
	err := Internal(errors.New("connection refused"), "finding user")
	assert.Equal(t, "finding user: connection refused", err.Error())
	assert.Equal(t, "bad", Validation("bad").Error())

	details := map[string]string{"email": "email is required"}
	v := Validation("invalid request").WithDetails(details)
	assert.Equal(t, details, v.Details)
}
