package session

import "time"

// AuditSink receives session lifecycle events: connect and finish, with a
// per-command invocation count covering the session's lifetime. Optional;
// a Handler built without one uses NullAuditSink.
type AuditSink interface {
	RecordConnect(sessionID uint64, clientAddr string, connectedAt time.Time)
	RecordFinish(sessionID uint64, clientAddr string, connectedAt, finishedAt time.Time, commandCounts map[string]int64)
}

// NullAuditSink discards every event.
type NullAuditSink struct{}

func (NullAuditSink) RecordConnect(uint64, string, time.Time)                             {}
func (NullAuditSink) RecordFinish(uint64, string, time.Time, time.Time, map[string]int64) {}

var _ AuditSink = NullAuditSink{}
