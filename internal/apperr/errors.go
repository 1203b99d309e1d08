// Package apperr holds the error kinds shared by every domain package and the
// contract used to map them onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Coded is implemented by errors that carry their own HTTP status and machine code.
type Coded interface {
	error
	HTTPStatus() int
	ErrorCode() string
}

// NotFoundError reports an unknown member, service, request or notification id.
type NotFoundError struct {
	Resource string
	ID       string
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) HTTPStatus() int   { return http.StatusNotFound }
func (e *NotFoundError) ErrorCode() string { return "NOT_FOUND" }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidArgumentError reports a semantically invalid input value.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func Invalid(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) HTTPStatus() int   { return http.StatusBadRequest }
func (e *InvalidArgumentError) ErrorCode() string { return "VALIDATION_FAILED" }

// PersistenceError wraps a storage failure. The operation was aborted and may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error     { return e.Err }
func (e *PersistenceError) HTTPStatus() int   { return http.StatusServiceUnavailable }
func (e *PersistenceError) ErrorCode() string { return "PERSISTENCE_FAILURE" }
func (e *PersistenceError) Retryable() bool   { return true }

// Wrap leaves coded errors untouched and turns anything else into a PersistenceError.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded Coded
	if errors.As(err, &coded) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
