package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/storage"
)

// journalRecord is the on-disk encoding MemoryCollection appends through
// PeriodicSyncStorage before an item becomes visible to readers. Recovery
// from the journal is outside this spec's scope; the record exists so the
// storage core is genuinely exercised by every Add.
type journalRecord struct {
	Queue      string `json:"queue"`
	Data       []byte `json:"data"`
	ExpiryUnix int64  `json:"expiry_unix,omitempty"`
}

type entry struct {
	data   []byte
	expiry time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiry.IsZero() && now.After(e.expiry)
}

type queueState struct {
	mu       sync.Mutex
	items    []entry
	reserved map[uint32]entry
	notifyCh chan struct{}
}

func newQueueState() *queueState {
	return &queueState{
		reserved: make(map[uint32]entry),
		notifyCh: make(chan struct{}),
	}
}

// signal wakes every goroutine currently blocked in Remove on this queue.
// Must be called without q.mu held.
func (q *queueState) signal() {
	q.mu.Lock()
	old := q.notifyCh
	q.notifyCh = make(chan struct{})
	q.mu.Unlock()
	close(old)
}

// MemoryCollection is an in-process, non-durable-on-restart implementation
// of Collection. Every Add is journaled through a PeriodicSyncStorage
// before becoming visible, which is the one place the storage core and the
// queue container meet.
type MemoryCollection struct {
	journal  *storage.Storage
	nextXID  atomic.Uint32
	archiver Archiver

	mu     sync.RWMutex
	queues map[string]*queueState
}

// NewMemoryCollection creates a collection backed by journal for
// durability. journal must not be nil.
func NewMemoryCollection(journal *storage.Storage) *MemoryCollection {
	return &MemoryCollection{
		journal:  journal,
		queues:   make(map[string]*queueState),
		archiver: NullArchiver{},
	}
}

// SetArchiver configures a, used from now on to archive items swept by
// FlushExpired/FlushAllExpired before they're discarded. Pass nil to
// disable archiving.
func (c *MemoryCollection) SetArchiver(a Archiver) {
	if a == nil {
		a = NullArchiver{}
	}
	c.archiver = a
}

func (c *MemoryCollection) queueFor(name string) *queueState {
	c.mu.RLock()
	q, ok := c.queues[name]
	c.mu.RUnlock()
	if ok {
		return q
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.queues[name]; ok {
		return q
	}
	q = newQueueState()
	c.queues[name] = q
	return q
}

func (c *MemoryCollection) Add(ctx context.Context, queue string, data []byte, expiry time.Time, who string) bool {
	var expiryUnix int64
	if !expiry.IsZero() {
		expiryUnix = expiry.Unix()
	}

	record, err := json.Marshal(journalRecord{Queue: queue, Data: data, ExpiryUnix: expiryUnix})
	if err != nil {
		logger.Error("queue: failed to encode journal record", "queue", queue, "error", err)
		return false
	}
	record = append(record, '\n')

	promise := c.journal.Write(record)
	if err := promise.WaitContext(ctx); err != nil {
		logger.Warn("queue: journal write failed, item not stored", "queue", queue, "who", who, "error", err)
		return false
	}

	q := c.queueFor(queue)
	q.mu.Lock()
	q.items = append(q.items, entry{data: data, expiry: expiry})
	q.mu.Unlock()
	q.signal()

	return true
}

func (c *MemoryCollection) Remove(ctx context.Context, queue string, deadline time.Time, opening, peeking bool, who string) (*Item, error) {
	q := c.queueFor(queue)

	for {
		q.mu.Lock()
		c.sweepExpiredLocked(q)
		// Items swept here are not archived: archival is tied to the
		// explicit flush_expired/flush_all_expired operations, not to
		// housekeeping done incidentally on the read path.

		if len(q.items) > 0 {
			head := q.items[0]

			if peeking {
				q.mu.Unlock()
				return &Item{Data: head.data}, nil
			}

			q.items = q.items[1:]

			if opening {
				xid := c.nextXID.Add(1)
				q.reserved[xid] = head
				q.mu.Unlock()
				return &Item{Data: head.data, XID: xid}, nil
			}

			q.mu.Unlock()
			return &Item{Data: head.data}, nil
		}

		waitCh := q.notifyCh
		q.mu.Unlock()

		if deadline.IsZero() {
			return nil, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-waitCh:
			timer.Stop()
			continue
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

func (c *MemoryCollection) Unremove(queue string, xid uint32) error {
	q := c.queueFor(queue)

	q.mu.Lock()
	e, ok := q.reserved[xid]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("queue: no reservation for xid %d", xid)
	}
	delete(q.reserved, xid)
	q.items = append([]entry{e}, q.items...)
	q.mu.Unlock()

	q.signal()
	return nil
}

func (c *MemoryCollection) ConfirmRemove(queue string, xid uint32) error {
	q := c.queueFor(queue)

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.reserved[xid]; !ok {
		return fmt.Errorf("queue: no reservation for xid %d", xid)
	}
	delete(q.reserved, xid)
	return nil
}

func (c *MemoryCollection) Flush(queue string, who string) {
	q := c.queueFor(queue)
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	logger.Info("queue flushed", "queue", queue, "who", who)
}

func (c *MemoryCollection) FlushExpired(queue string, who string) int {
	q := c.queueFor(queue)
	q.mu.Lock()
	removed := c.sweepExpiredLocked(q)
	q.mu.Unlock()

	c.archiveSwept(queue, removed)
	return len(removed)
}

func (c *MemoryCollection) FlushAllExpired() int {
	total := 0
	for _, name := range c.QueueNames() {
		total += c.FlushExpired(name, "flush_all_expired")
	}
	return total
}

// archiveSwept hands removed to the configured Archiver, if any. Best
// effort: a failing archive does not undo the sweep, it only gets logged.
func (c *MemoryCollection) archiveSwept(queue string, removed []entry) {
	if len(removed) == 0 {
		return
	}
	items := make([]ArchivedItem, len(removed))
	now := time.Now()
	for i, e := range removed {
		items[i] = ArchivedItem{Data: e.data, SweptAt: now}
	}
	if err := c.archiver.Archive(context.Background(), queue, items); err != nil {
		logger.Warn("archive of swept items failed", "queue", queue, "count", len(items), "error", err)
	}
}

func (c *MemoryCollection) Delete(queue string, who string) {
	c.mu.Lock()
	delete(c.queues, queue)
	c.mu.Unlock()
	logger.Info("queue deleted", "queue", queue, "who", who)
}

func (c *MemoryCollection) QueueNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.queues))
	for name := range c.queues {
		names = append(names, name)
	}
	return names
}

func (c *MemoryCollection) Stats(queue string) map[string]string {
	q := c.queueFor(queue)
	q.mu.Lock()
	defer q.mu.Unlock()

	return map[string]string{
		"items":    fmt.Sprintf("%d", len(q.items)),
		"reserved": fmt.Sprintf("%d", len(q.reserved)),
		"bytes":    fmt.Sprintf("%d", sumBytesLocked(q)),
	}
}

func (c *MemoryCollection) CurrentItems(queue string) int {
	q := c.queueFor(queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (c *MemoryCollection) CurrentBytes(queue string) int64 {
	q := c.queueFor(queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	return sumBytesLocked(q)
}

// ReservedMemoryRatio reports the fraction of in-memory bytes currently
// held by open reservations rather than sitting ready in the queue.
func (c *MemoryCollection) ReservedMemoryRatio(queue string) float64 {
	q := c.queueFor(queue)
	q.mu.Lock()
	defer q.mu.Unlock()

	var reservedBytes, totalBytes int64
	for _, e := range q.reserved {
		reservedBytes += int64(len(e.data))
	}
	totalBytes = reservedBytes
	for _, e := range q.items {
		totalBytes += int64(len(e.data))
	}

	if totalBytes == 0 {
		return 0
	}
	return float64(reservedBytes) / float64(totalBytes)
}

// sweepExpiredLocked removes every expired ready item from the queue,
// wherever it sits (expiry is checked lazily, on access, per-queue). q.mu must be
// held by the caller.
func (c *MemoryCollection) sweepExpiredLocked(q *queueState) []entry {
	now := time.Now()
	var removed []entry

	kept := q.items[:0]
	for _, e := range q.items {
		if e.expired(now) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	q.items = kept
	return removed
}

func sumBytesLocked(q *queueState) int64 {
	var total int64
	for _, e := range q.items {
		total += int64(len(e.data))
	}
	for _, e := range q.reserved {
		total += int64(len(e.data))
	}
	return total
}

var _ Collection = (*MemoryCollection)(nil)
