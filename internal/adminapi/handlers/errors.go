package handlers

import (
	"errors"
	"net/http"

	"github.com/duraqio/duraq/internal/session"
)

// statusForError maps a session-core error to an HTTP status, mirroring the
// text protocol's error taxonomy (internal/protocol/memcache/errors.go):
// availability gating is a 503, an unconfigured status is a 404,
// everything else is a 500.
func statusForError(err error) int {
	var uerr *session.UnavailableError
	switch {
	case errors.As(err, &uerr):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrStatusNotConfigured):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
