package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

var (
	ErrBlocked      = &ErrorWithStatusCode{Message: "Message is blocked", StatusCode: http.StatusConflict}
	ErrThreadClosed = &ErrorWithStatusCode{Message: "Thread is closed", StatusCode: http.StatusConflict}
	ErrMatcherTaken = &ErrorWithStatusCode{Message: "Matcher already exists", StatusCode: http.StatusConflict}
)

// ValidationError collects every problem found while validating an entity,
// so callers can report all of them at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Err returns nil when nothing was collected.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

type NotFoundError struct {
	Entity string
	Id     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Id)
}

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err unless it already carries a domain meaning.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Is[*NotFoundError](err) || Is[*ValidationError](err) || Is[*ErrorWithStatusCode](err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Check if err (or anything it wraps) is an instance of T
func Is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// StatusCode maps an error to the HTTP status it should be reported with.
func StatusCode(err error) int {
	var withCode *ErrorWithStatusCode
	switch {
	case errors.As(err, &withCode):
		return withCode.StatusCode
	case Is[*ValidationError](err):
		return http.StatusBadRequest
	case Is[*NotFoundError](err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
