package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for broker operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client/session attributes
	// ========================================================================
	AttrClientAddr = "client.address"
	AttrSessionID  = "session.id"

	// ========================================================================
	// Protocol attributes
	// ========================================================================
	AttrCommand  = "protocol.command" // get, set, monitor, confirm, ...
	AttrQueue    = "queue.name"
	AttrXID      = "queue.xid" // reliable-read transaction id
	AttrBytes    = "payload.bytes"
	AttrExpiry   = "item.expiry"
	AttrMaxWait  = "read.max_wait_ms"
	AttrOpenWait = "read.open_wait_ms"
	AttrStatus   = "response.status" // STORED, NOT_STORED, END, ERROR, ...

	// ========================================================================
	// Storage attributes
	// ========================================================================
	AttrFsyncMode = "storage.fsync_mode" // sync, never, grouped
	AttrWALOffset = "storage.wal_offset"

	// ========================================================================
	// Queue/availability attributes
	// ========================================================================
	AttrQueueDepth  = "queue.depth"
	AttrQueueBytes  = "queue.bytes"
	AttrAvailable   = "availability.writable"
	AttrAvailableRO = "availability.readable"

	// ========================================================================
	// Archive/cold-storage attributes
	// ========================================================================
	AttrBucket = "storage.bucket"
	AttrKey    = "storage.key"
	AttrRegion = "storage.region"
)

// Span names for operations.
const (
	SpanCommandRequest = "broker.command"

	SpanCmdGet      = "broker.GET"
	SpanCmdGets     = "broker.GETS"
	SpanCmdSet      = "broker.SET"
	SpanCmdDelete   = "broker.DELETE"
	SpanCmdMonitor  = "broker.MONITOR"
	SpanCmdConfirm  = "broker.CONFIRM"
	SpanCmdFlush    = "broker.FLUSH"
	SpanCmdFlushAll = "broker.FLUSH_ALL"
	SpanCmdStats    = "broker.STATS"

	SpanStorageWrite = "storage.write"
	SpanStorageFsync = "storage.fsync"
	SpanQueueAdd     = "queue.add"
	SpanQueueRemove  = "queue.remove"
	SpanArchiveUpload = "archive.upload"
)

// ClientAddr returns an attribute for the client's remote address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// SessionID returns an attribute for the session identifier.
func SessionID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrSessionID, int64(id))
}

// Command returns an attribute for the protocol command name.
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Queue returns an attribute for the queue name.
func Queue(name string) attribute.KeyValue {
	return attribute.String(AttrQueue, name)
}

// XID returns an attribute for a reliable-read transaction id.
func XID(xid uint32) attribute.KeyValue {
	return attribute.Int64(AttrXID, int64(xid))
}

// Bytes returns an attribute for payload size.
func Bytes(n int) attribute.KeyValue {
	return attribute.Int(AttrBytes, n)
}

// Status returns an attribute for the response status word.
func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// FsyncMode returns an attribute for the storage fsync mode.
func FsyncMode(mode string) attribute.KeyValue {
	return attribute.String(AttrFsyncMode, mode)
}

// QueueDepth returns an attribute for the current item count of a queue.
func QueueDepth(n int) attribute.KeyValue {
	return attribute.Int64(AttrQueueDepth, int64(n))
}

// QueueBytes returns an attribute for the current byte size of a queue.
func QueueBytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrQueueBytes, n)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartCommandSpan starts a span for a dispatched protocol command.
func StartCommandSpan(ctx context.Context, command, queue string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Command(command)}
	if queue != "" {
		allAttrs = append(allAttrs, Queue(queue))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "broker."+command, trace.WithAttributes(allAttrs...))
}

// StartStorageSpan starts a span for a journal/storage operation.
func StartStorageSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "storage."+operation, trace.WithAttributes(attrs...))
}

// StartQueueSpan starts a span for an in-memory queue operation.
func StartQueueSpan(ctx context.Context, operation, queue string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Queue(queue)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "queue."+operation, trace.WithAttributes(allAttrs...))
}

// StartArchiveSpan starts a span for a cold-storage archival upload.
func StartArchiveSpan(ctx context.Context, queue string, xid uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Queue(queue), XID(xid)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanArchiveUpload, trace.WithAttributes(allAttrs...))
}
