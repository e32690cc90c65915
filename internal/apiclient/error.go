package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	msgUnreachable = "No se pudo conectar con el servidor"
	msgTimeout     = "El servidor tardó demasiado en responder"
	msgServer      = "Error del servidor"
)

// Error is returned for every failed call, whether the request never got a
// response (StatusCode 0) or the backend answered with a 4xx/5xx.
type Error struct {
	StatusCode int
	// Message is safe to show to the user.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNetwork reports whether err happened before any response was received.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 0
}

// MessageOf returns the user-facing message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
