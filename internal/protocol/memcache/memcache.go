// Package memcache implements the line-oriented, memcache-framing wire
// protocol over a SessionHandler: request parsing, option decoding, and
// response serialization.
package memcache

// ProtocolVersion is reported by the version command.
const ProtocolVersion = "1.0.0"

const (
	crlf = "\r\n"

	respStored      = "STORED"
	respNotStored   = "NOT_STORED"
	respDeleted     = "DELETED"
	respEnd         = "END"
	respError       = "ERROR"
	respClientError = "CLIENT_ERROR"
	respServerError = "SERVER_ERROR"
)
