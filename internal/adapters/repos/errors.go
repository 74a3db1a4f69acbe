package repos

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNoRowsAffected = errors.New("no rows affected")
)

// StatusError attaches the HTTP status a store failure should surface as.
type StatusError struct {
	Status int
	Err    error
}

func NewStatusError(status int, err error) *StatusError {
	return &StatusError{Status: status, Err: err}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %d)", e.Err, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func (e *StatusError) HTTPStatusCode() int {
	return e.Status
}
