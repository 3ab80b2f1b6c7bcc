package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation so the transport layer can pick a
// status code without string matching.
type ErrorKind string

const (
	KindInvalidInput    ErrorKind = "invalid_input"
	KindNotFound        ErrorKind = "not_found"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindConflict        ErrorKind = "conflict"
	KindUpstreamFailure ErrorKind = "upstream_failure"
)

// Error is the only error type the services return for expected failures.
// Field names the offending field or slot when determinable, so clients can
// highlight it.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalidf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflictf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: fmt.Sprintf(format, args...)}
}

func upstreamf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstreamFailure, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, or empty when err is not a service
// error (unexpected store failures stay unclassified and map to a 500).
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
