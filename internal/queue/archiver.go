package queue

import (
	"context"
	"time"
)

// ArchivedItem is one payload swept by an expiry pass, handed to an
// Archiver before it is discarded from memory.
type ArchivedItem struct {
	Data    []byte
	SweptAt time.Time
}

// Archiver receives items a queue has swept for expiry, for optional
// cold-storage retention. Archive is called after the items have already
// been removed from the in-memory queue; a failing Archiver does not
// resurrect them. A Collection built without one uses NullArchiver.
type Archiver interface {
	Archive(ctx context.Context, queue string, items []ArchivedItem) error
}

// NullArchiver discards every item.
type NullArchiver struct{}

func (NullArchiver) Archive(context.Context, string, []ArchivedItem) error { return nil }

var _ Archiver = NullArchiver{}
