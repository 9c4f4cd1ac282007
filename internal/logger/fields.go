package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID    = "session_id"    // Per-connection session identifier
	KeyClientAddr   = "client_addr"   // Remote address of the connection
	KeyConnectionID = "connection_id" // Transport-level connection identifier

	// ========================================================================
	// Command & Queue
	// ========================================================================
	KeyCommand = "command" // Protocol command name: get, set, monitor, confirm, ...
	KeyQueue   = "queue"   // Queue name the command targets
	KeyXID     = "xid"     // Reliable-read transaction id

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyBytes      = "bytes"       // Payload size in bytes
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id uint64) slog.Attr {
	return slog.Uint64(KeySessionID, id)
}

// ClientAddr returns a slog.Attr for the remote client address.
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// Command returns a slog.Attr for the protocol command name.
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// Queue returns a slog.Attr for the queue name.
func Queue(name string) slog.Attr {
	return slog.String(KeyQueue, name)
}

// XID returns a slog.Attr for a reliable-read transaction id.
func XID(xid uint32) slog.Attr {
	return slog.Uint64(KeyXID, uint64(xid))
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Bytes returns a slog.Attr for a payload size.
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}
