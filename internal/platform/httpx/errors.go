package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across the domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable signals an infrastructure failure (identity store or cache
	// unreachable). It is surfaced as a server error, never as a credential problem.
	ErrUnavailable = errors.New("backend unavailable")
)

// RespondError maps domain errors to enveloped HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Error(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		Error(w, http.StatusConflict, CodeDuplicate, err.Error())
	case errors.Is(err, ErrValidation):
		Error(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, ErrForbidden):
		Error(w, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Error(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
	case errors.Is(err, ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, CodeInternal, "service temporarily unavailable")
	default:
		Error(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
