package utils

import (
	"encoding/json"
	"net/http"

	"github.com/raushankrgupta/temple-connect/apperr"
	"go.uber.org/zap"
)

// ErrorResponse is the envelope every failed request returns.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// ShowInternalDetails exposes the cause of 500s in the envelope. Set from DEBUG.
var ShowInternalDetails bool

// RespondJSON sends a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers are already sent, all we can do is log
		zap.S().Errorw("Error encoding JSON response", "error", err)
	}
}

// RespondError sends a JSON error response and records the message on the request log.
func RespondError(w http.ResponseWriter, logger *RequestLog, message string, status int) {
	logger.Fail(message)
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondAppError maps err onto the error envelope using its apperr kind.
// Untyped errors become a 500 with a generic message.
func RespondAppError(w http.ResponseWriter, logger *RequestLog, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err, "internal server error")
	}

	resp := ErrorResponse{Error: ae.Message, Details: ae.Details}
	if ae.Kind == apperr.KindInternal {
		logger.Fail(err.Error())
		if ShowInternalDetails {
			resp.Details = err.Error()
		}
	} else {
		logger.Fail(ae.Error())
	}
	RespondJSON(w, ae.Kind.Status(), resp)
}

// DecodeJSON reads the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}
