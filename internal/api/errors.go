package api

import (
	"errors"
	"net/http"
)

// Error carries a failed Result into code paths that work with Go errors,
// such as CLI commands. Message is what the user sees.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Err returns nil for a successful result and an *Error otherwise.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = MsgUnknownError
	}
	return &Error{Status: r.Status, Message: msg}
}

// IsUnauthorized reports whether err (or any error in its chain) is an
// *Error caused by a rejected bearer token.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
