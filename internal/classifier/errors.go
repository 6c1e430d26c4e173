package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResponseItems means the backend answered with an empty batch.
	ErrNoResponseItems = errors.New("no response items from model")
	// ErrMissingScores means the first response item lacks the two class scores.
	ErrMissingScores = errors.New("missing class scores in response")
)

// Error is returned by every failed classifier operation.
type Error struct {
	Op  string // "request", "decode", "response"
	Err error
}

func (e *Error) Error() string {
	return "classifier " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError carries a non-2xx backend reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed with status %d: %s", e.StatusCode, e.Body)
}
