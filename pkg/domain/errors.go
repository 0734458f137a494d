package domain

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrIDNotFound     = NewErr("ID_NOT_FOUND", "id not found", http.StatusNotFound)
	ErrTooBig         = NewErr("TOO_BIG", "too large paste", http.StatusRequestEntityTooLarge)
	ErrIDMalformed    = NewErr("ID_MALFORMED", "malformed id", http.StatusBadRequest)
	ErrNoIDSegment    = NewErr("NO_ID_SEGMENT", "id segment not found in the url", http.StatusBadRequest)
	ErrInvalidRequest = NewErr("INVALID_REQUEST", "invalid request", http.StatusBadRequest)
	ErrInternalServer = NewErr("INTERNAL_ERROR", "internal error", http.StatusInternalServerError)
)

// Err is a request-mappable error: a stable code, a client-safe message
// and the HTTP status it translates to.
type Err struct {
	Code   string `json:"code"`
	Msg    string `json:"message"`
	Status int    `json:"-"`
}

func (e *Err) Error() string { return e.Msg }

func NewErr(code, msg string, status int) *Err {
	return &Err{Code: code, Msg: msg, Status: status}
}

// StorageErr wraps an opaque backend failure. The underlying error is kept
// for server-side logging and never leaks to the client.
type StorageErr struct {
	Inner error
}

func (e *StorageErr) Error() string { return "storage: " + e.Inner.Error() }
func (e *StorageErr) Unwrap() error { return e.Inner }

func WrapStorage(err error) error {
	if err == nil {
		return nil
	}
	var e *Err
	if errors.As(err, &e) {
		return err
	}
	return &StorageErr{Inner: err}
}

// Status maps an error to its HTTP status. Unknown errors are treated as
// internal.
func Status(err error) int {
	var e *Err
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Code returns the stable error code for a response body.
func Code(err error) string {
	var e *Err
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}

// Message returns the client-safe description. Anything mapping to a 5xx
// is flattened to a generic message.
func Message(err error) string {
	var e *Err
	if errors.As(err, &e) && e.Status < http.StatusInternalServerError {
		return e.Msg
	}
	return "internal error"
}
