package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// Pipeline errors.
	ErrUnsupportedLanguage = errors.New("no executor configured for language")
	ErrTerminalSubmission  = errors.New("submission is in a terminal state")

	// Exam policy errors. All of these are rejected synchronously at the API
	// boundary; no partial state is created.
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrOutsideWindow        = errors.New("exam window is not open")
	ErrAttemptExpired       = errors.New("exam attempt time is up")
	ErrAlreadySubmitted     = errors.New("exam attempt already submitted")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrUnsupportedLanguage) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadySubmitted) || errors.Is(err, ErrTerminalSubmission) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrAttemptLimitExceeded) || errors.Is(err, ErrOutsideWindow) || errors.Is(err, ErrAttemptExpired) {
		return http.StatusUnprocessableEntity
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
