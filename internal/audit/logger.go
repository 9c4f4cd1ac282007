package audit

import (
	"time"

	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/session"
)

// Logger implements session.AuditSink by persisting session lifecycle
// events through a Store.
type Logger struct {
	store *Store
}

// NewLogger wraps store as a session.AuditSink.
func NewLogger(store *Store) *Logger {
	return &Logger{store: store}
}

var _ session.AuditSink = (*Logger)(nil)

// RecordConnect inserts a new session_events row. Failures are logged and
// swallowed: a broken audit log must never take down a client session.
func (l *Logger) RecordConnect(sessionID uint64, clientAddr string, connectedAt time.Time) {
	event := SessionEvent{
		SessionID:   sessionID,
		ClientAddr:  clientAddr,
		ConnectedAt: connectedAt,
	}
	if err := l.store.db.Create(&event).Error; err != nil {
		logger.Warn("audit: record connect failed", "session_id", sessionID, "error", err)
	}
}

// RecordFinish updates the session's row with its finish time and final
// command-count snapshot.
func (l *Logger) RecordFinish(sessionID uint64, clientAddr string, connectedAt, finishedAt time.Time, commandCounts map[string]int64) {
	result := l.store.db.Model(&SessionEvent{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"finished_at":    finishedAt,
			"command_counts": commandCounts,
		})
	if result.Error != nil {
		logger.Warn("audit: record finish failed", "session_id", sessionID, "error", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		// RecordConnect never landed (e.g. a prior transient DB error); upsert
		// so the finish event isn't lost entirely.
		event := SessionEvent{
			SessionID:     sessionID,
			ClientAddr:    clientAddr,
			ConnectedAt:   connectedAt,
			FinishedAt:    &finishedAt,
			CommandCounts: commandCounts,
		}
		if err := l.store.db.Create(&event).Error; err != nil {
			logger.Warn("audit: record finish fallback insert failed", "session_id", sessionID, "error", err)
		}
	}
}
