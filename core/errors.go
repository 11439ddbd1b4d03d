package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// UpstreamError is returned when one of the external services (catalog, maps) misbehaves.
type UpstreamError struct {
	Service string
	Status  int // HTTP status, 0 when the service answered 200 with an error payload
	Message string
}

func NewUpstreamError(service string, status int, msg string) error {
	return &UpstreamError{Service: service, Status: status, Message: msg}
}

func (err UpstreamError) Error() string {
	if err.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", err.Service, err.Status, err.Message)
	}
	return fmt.Sprintf("%s: %s", err.Service, err.Message)
}

func IsUpstream(err error) bool {
	_, ok := errors.Cause(err).(*UpstreamError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
