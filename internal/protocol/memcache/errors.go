package memcache

import (
	"errors"

	"github.com/duraqio/duraq/internal/session"
)

// outcome is what a command handler produces for the connection loop to
// act on: the line(s) to write, and whether the connection must close
// after they flush.
type outcome struct {
	lines      []string
	disconnect bool
}

func ok(line string) outcome          { return outcome{lines: []string{line}} }
func okLines(lines ...string) outcome { return outcome{lines: lines} }
func disconnectWith(line string) outcome {
	return outcome{lines: []string{line}, disconnect: true}
}
func clientError(msg string) outcome { return disconnectWith(respClientError + " " + msg) }
func genericError() outcome          { return disconnectWith(respError) }
func serverError(msg string) outcome { return disconnectWith(respServerError + " " + msg) }

// mapSessionError converts a session-core error into a wire outcome per
// the error taxonomy: protocol violations are CLIENT_ERROR, transaction
// violations and too-many-opens are ERROR, availability gating is
// SERVER_ERROR, all terminal errors disconnect.
func mapSessionError(err error) outcome {
	var uerr *session.UnavailableError
	switch {
	case errors.As(err, &uerr):
		return serverError(uerr.Error())
	case errors.Is(err, session.ErrTransactionViolation):
		return genericError()
	case errors.Is(err, session.ErrTooManyOpenReads):
		return genericError()
	case errors.Is(err, session.ErrStatusNotConfigured):
		return genericError()
	case errors.Is(err, session.ErrProtocolViolation):
		return clientError(err.Error())
	default:
		return serverError(err.Error())
	}
}
