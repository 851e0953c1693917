package overpass

import (
	"errors"
	"fmt"
)

// ErrorCode classifies query failures.
type ErrorCode string

// Standard error codes.
const (
	// ErrNetwork indicates the request never produced a response.
	ErrNetwork ErrorCode = "NETWORK_ERROR"
	// ErrStatus indicates a non-success HTTP response status.
	ErrStatus ErrorCode = "STATUS_ERROR"
	// ErrDecode indicates a response body that is not well-formed JSON.
	ErrDecode ErrorCode = "PARSE_ERROR"
)

// QueryError describes a failed Overpass exchange. Status is only set
// for ErrStatus errors.
type QueryError struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a network or status failure.
func IsTransport(err error) bool {
	var qe *QueryError
	if !errors.As(err, &qe) {
		return false
	}
	return qe.Code == ErrNetwork || qe.Code == ErrStatus
}

// IsParse reports whether err is a response-decoding failure.
func IsParse(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Code == ErrDecode
}
