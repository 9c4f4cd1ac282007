package audit

import "time"

// SessionEvent is one row of the session audit log: a connect, optionally
// updated in place when the session finishes. CommandCounts is stored as a
// JSON object (GORM serializer:json) rather than a side table, since it is
// written once at Finish and never queried by individual command.
type SessionEvent struct {
	ID uint `gorm:"primaryKey"`

	SessionID  uint64 `gorm:"uniqueIndex;not null"`
	ClientAddr string `gorm:"size:255;not null"`

	ConnectedAt time.Time  `gorm:"not null"`
	FinishedAt  *time.Time

	CommandCounts map[string]int64 `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name so a driver's default pluralization rules
// never drift the schema out from under the golang-migrate SQL.
func (SessionEvent) TableName() string {
	return "session_events"
}

// AllModels lists every model AutoMigrate (sqlite path) must create.
func AllModels() []any {
	return []any{&SessionEvent{}}
}
