// Package queue defines the QueueCollection contract the session core is
// built against, plus a concrete in-process implementation of it.
package queue

import (
	"context"
	"time"
)

// Item is a single payload handed back by Remove. XID is non-zero only when
// the item was reserved under a reliable-read open.
type Item struct {
	Data []byte
	XID  uint32
}

// Collection is the downstream collaborator consumed by the session core
// (spec §6). It owns queue storage, fan-out, and the expiry sweeper; none
// of that is part of the session/storage core itself.
type Collection interface {
	// Add appends data to queue, durable by the time it returns. expiry is
	// the zero Time when the item never expires. Returns false when the
	// queue refuses the write for capacity reasons.
	Add(ctx context.Context, queue string, data []byte, expiry time.Time, who string) bool

	// Remove reserves or consumes the head item of queue. If deadline is
	// the zero Time, Remove returns immediately with (nil, nil) when the
	// queue is empty rather than blocking. peeking returns the head item
	// without consuming or reserving it. opening reserves the item under
	// a transaction id (Item.XID); otherwise the item is consumed
	// permanently. Remove is cancellable via ctx.
	Remove(ctx context.Context, queue string, deadline time.Time, opening, peeking bool, who string) (*Item, error)

	// Unremove releases a reservation, returning the item to the head of
	// the queue in its original position.
	Unremove(queue string, xid uint32) error

	// ConfirmRemove durably consumes a reservation.
	ConfirmRemove(queue string, xid uint32) error

	// Flush discards every item currently in queue.
	Flush(queue string, who string)

	// FlushExpired discards expired items in queue and returns how many
	// were removed.
	FlushExpired(queue string, who string) int

	// FlushAllExpired discards expired items across every queue and
	// returns the total removed.
	FlushAllExpired() int

	// Delete removes a queue entirely.
	Delete(queue string, who string)

	// QueueNames lists every queue known to the collection.
	QueueNames() []string

	// Stats returns a flat string-keyed snapshot of queue-level counters,
	// suitable for STAT/dump_stats responses.
	Stats(queue string) map[string]string

	CurrentItems(queue string) int
	CurrentBytes(queue string) int64
	ReservedMemoryRatio(queue string) float64
}
