package gestion

import (
	"errors"
	"fmt"
)

// ErrMalformedToken reports a token that cannot be decoded: wrong segment
// count, bad base64 payload, or unparseable claims. Callers treat it as
// "invalid/expired", never as a fatal error.
var ErrMalformedToken = errors.New("gestion: malformed token")

// AuthError is the normalized failure from any identity-backend call.
// Message prefers the backend-supplied message, then the transport message,
// then a generic fallback; Status defaults to 500 when the transport provides
// none.
type AuthError struct {
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gestion: auth error (status %d): %s", e.Status, e.Message)
}

// NewAuthError builds an AuthError, applying the message fallback chain and
// the default status.
func NewAuthError(message string, status int) *AuthError {
	if message == "" {
		message = "authentication request failed"
	}
	if status == 0 {
		status = 500
	}
	return &AuthError{Message: message, Status: status}
}

// AsAuthError unwraps err as an *AuthError if possible.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
