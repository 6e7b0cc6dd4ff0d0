// Package errors defines the sentinel error taxonomy shared by the index
// builder and the query engine, plus an AppError wrapper that carries an
// HTTP status for the searcher's HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoValidTerm means the query normalized to zero tokens.
	ErrNoValidTerm = errors.New("no valid term in query")
	// ErrTermNotFound means the normalized term is absent from the postings
	// table.
	ErrTermNotFound = errors.New("term not found in index")
	// ErrDocumentNotFound means the requested document id has no metadata.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrNotReady means the query engine has not loaded the index artifacts.
	ErrNotReady = errors.New("query engine not ready")
	// ErrArtifactMissing means an expected index artifact is absent.
	ErrArtifactMissing = errors.New("index artifact missing")
	// ErrStorageIO covers read/write failures against the artifact store or
	// the document store.
	ErrStorageIO = errors.New("storage i/o failure")
	// ErrInvalidInput covers malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// AppError pairs a sentinel with a human-readable message and an HTTP
// status code.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New wraps a sentinel error with a status code and message.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the searcher should
// return for it.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrTermNotFound), errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoValidTerm), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
