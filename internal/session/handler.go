package session

import (
	"context"
	"fmt"
	"time"

	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/queue"
)

// Handler is the protocol-agnostic command surface bound to one Session. A
// MemcacheAdapter calls these methods directly; none of them know anything
// about wire framing.
type Handler struct {
	collection queue.Collection
	gate       *AvailabilityGate
	registry   *Registry
	sess       *Session
	metrics    Metrics
	auditSink  AuditSink

	maxOpenReads int

	shutdownFn func(delay time.Duration)
}

// Config bundles the collaborators a Handler needs beyond the Session
// itself. ShutdownFn is called asynchronously by Shutdown; nil disables it.
type Config struct {
	Collection   queue.Collection
	Gate         *AvailabilityGate
	Registry     *Registry
	Metrics      Metrics
	AuditSink    AuditSink
	MaxOpenReads int
	ShutdownFn   func(delay time.Duration)
}

// NewHandler binds sess to its collaborators. One Handler per connection.
// Records the session's connect event with auditSink, if one is configured.
func NewHandler(sess *Session, cfg Config) *Handler {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NullMetrics{}
	}
	auditSink := cfg.AuditSink
	if auditSink == nil {
		auditSink = NullAuditSink{}
	}
	maxOpenReads := cfg.MaxOpenReads
	if maxOpenReads <= 0 {
		maxOpenReads = 1
	}
	h := &Handler{
		collection:   cfg.Collection,
		gate:         cfg.Gate,
		registry:     cfg.Registry,
		sess:         sess,
		metrics:      metrics,
		auditSink:    auditSink,
		maxOpenReads: maxOpenReads,
		shutdownFn:   cfg.ShutdownFn,
	}
	auditSink.RecordConnect(sess.SessionID, sess.ClientAddr, sess.CreatedAt)
	return h
}

func (h *Handler) who() string {
	return fmt.Sprintf("session-%d(%s)", h.sess.SessionID, h.sess.ClientAddr)
}

// SessionID returns the id of the bound session, for logging/metrics.
func (h *Handler) SessionID() uint64 { return h.sess.SessionID }

// ShouldLogClientError reports whether this is the first protocol-level
// client error observed on the bound session, marking one as logged. An
// adapter uses this to avoid log storms from a misbehaving client.
func (h *Handler) ShouldLogClientError() bool { return h.sess.shouldLogClientError() }

// SetItem stores data on queue, durable by the time it returns. expiry is
// the zero Time for no expiry.
func (h *Handler) SetItem(ctx context.Context, queueName string, expiry time.Time, data []byte) (bool, error) {
	if err := h.gate.CheckWrite("set"); err != nil {
		return false, err
	}
	start := time.Now()
	stored := h.collection.Add(ctx, queueName, data, expiry, h.who())
	h.sess.incCommand("set")
	h.metrics.IncCommand("set")
	h.metrics.ObserveSetLatency(time.Since(start))
	h.metrics.ObserveQueueLatency(queueName, time.Since(start))
	return stored, nil
}

// GetItem fetches (or peeks, or reserves) the head item of queue, blocking
// up to deadline (zero Time means return immediately if empty).
func (h *Handler) GetItem(ctx context.Context, queueName string, deadline time.Time, opening, peeking bool) (*queue.Item, error) {
	if err := h.gate.CheckRead("get"); err != nil {
		return nil, err
	}
	if opening && h.sess.pendingReads.Size(queueName) >= h.maxOpenReads {
		return nil, ErrTooManyOpenReads
	}
	if !opening && !peeking && h.sess.pendingReads.Size(queueName) > 0 {
		return nil, ErrTransactionViolation
	}
	if peeking {
		h.sess.incCommand("peek")
		h.metrics.IncCommand("peek")
	} else {
		h.sess.incCommand("get")
		h.metrics.IncCommand("get")
	}

	waitCtx, cancel := context.WithCancel(ctx)
	id := h.sess.waiters.register(cancel)
	defer h.sess.waiters.deregister(id)

	item, err := h.collection.Remove(waitCtx, queueName, deadline, opening, peeking, h.who())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	if opening && item.XID != 0 {
		if h.sess.Finished() {
			// The session finished while this reservation was in flight.
			// Don't hand the caller a reservation a dead session can
			// never confirm or abort through its own PendingReadSet.
			if uerr := h.collection.Unremove(queueName, item.XID); uerr != nil {
				logger.Warn("unremove of orphaned reservation failed", logger.Queue(queueName), logger.XID(item.XID), logger.Err(uerr))
			}
			return nil, nil
		}
		h.sess.pendingReads.Add(queueName, item.XID)
	}
	return item, nil
}

// AbortRead releases one reserved item back to the head of queue.
func (h *Handler) AbortRead(queueName string) bool {
	h.sess.incCommand("abort")
	xid, ok := h.sess.pendingReads.Pop(queueName)
	if !ok {
		logger.Warn("abort with no pending read", logger.Queue(queueName))
		return false
	}
	if err := h.collection.Unremove(queueName, xid); err != nil {
		logger.Warn("unremove failed", logger.Queue(queueName), logger.XID(xid), logger.Err(err))
		return false
	}
	return true
}

// CloseRead confirms (permanently consumes) one reserved item.
func (h *Handler) CloseRead(queueName string) bool {
	h.sess.incCommand("close")
	xid, ok := h.sess.pendingReads.Pop(queueName)
	if !ok {
		return false
	}
	if err := h.collection.ConfirmRemove(queueName, xid); err != nil {
		logger.Warn("confirmRemove failed", logger.Queue(queueName), logger.XID(xid), logger.Err(err))
		return false
	}
	return true
}

// CloseReads confirms up to n reserved items, oldest first. Returns true if
// at least one was confirmed.
func (h *Handler) CloseReads(queueName string, n int) bool {
	h.sess.incCommand("close")
	xids := h.sess.pendingReads.PopN(queueName, n)
	confirmed := false
	for _, xid := range xids {
		if err := h.collection.ConfirmRemove(queueName, xid); err != nil {
			logger.Warn("confirmRemove failed", logger.Queue(queueName), logger.XID(xid), logger.Err(err))
			continue
		}
		confirmed = true
	}
	return confirmed
}

// MonitorCallback receives each streamed item as it becomes available. It
// is never called with nil; stream end is signalled by MonitorUntil's
// return.
type MonitorCallback func(item *queue.Item)

// MonitorUntil streams items from queue, invoking callback once per
// delivered item, until one of: an availability block is observed,
// maxItems items have been delivered, deadline elapses, the session's
// pending count for queue reaches maxOpenReads, or a fetch returns no
// item. Items are delivered to callback as each fetch resolves rather
// than buffered, so a slow producer still streams partial results to a
// long-lived monitor before its deadline.
func (h *Handler) MonitorUntil(ctx context.Context, queueName string, deadline time.Time, maxItems int, opening bool, callback MonitorCallback) (int, error) {
	if err := h.gate.CheckRead("monitor"); err != nil {
		return 0, err
	}
	h.sess.incCommand("monitor")

	delivered := 0
	for {
		if err := h.gate.CheckRead("monitor"); err != nil {
			break
		}
		if maxItems > 0 && delivered >= maxItems {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		if opening && h.sess.pendingReads.Size(queueName) >= h.maxOpenReads {
			break
		}

		item, err := h.GetItem(ctx, queueName, deadline, opening, false)
		if err != nil {
			return delivered, err
		}
		if item == nil {
			break
		}
		callback(item)
		delivered++
	}
	return delivered, nil
}

// Flush discards every item in queue.
func (h *Handler) Flush(queueName string) error {
	if err := h.gate.CheckWrite("flush"); err != nil {
		return err
	}
	h.sess.incCommand("flush")
	h.collection.Flush(queueName, h.who())
	return nil
}

// FlushExpired discards expired items in queue, returning how many.
func (h *Handler) FlushExpired(queueName string) (int, error) {
	if err := h.gate.CheckWrite("flush_expired"); err != nil {
		return 0, err
	}
	h.sess.incCommand("flush_expired")
	return h.collection.FlushExpired(queueName, h.who()), nil
}

// FlushAllQueues unconditionally discards every item in every known queue.
func (h *Handler) FlushAllQueues() error {
	if err := h.gate.CheckWrite("flush_all"); err != nil {
		return err
	}
	h.sess.incCommand("flush_all")
	who := h.who()
	for _, queueName := range h.collection.QueueNames() {
		h.collection.Flush(queueName, who)
	}
	return nil
}

// FlushAllExpired discards expired items across every queue, returning the
// total removed.
func (h *Handler) FlushAllExpired() (int, error) {
	if err := h.gate.CheckWrite("flush_all_expired"); err != nil {
		return 0, err
	}
	h.sess.incCommand("flush_all_expired")
	return h.collection.FlushAllExpired(), nil
}

// Delete removes queue entirely.
func (h *Handler) Delete(queueName string) error {
	if err := h.gate.CheckWrite("delete"); err != nil {
		return err
	}
	h.sess.incCommand("delete")
	h.collection.Delete(queueName, h.who())
	return nil
}

// QueueNames lists every queue known to the collection. Diagnostic;
// ungated, matching spec.md §4.3's stats/dump_stats not appearing in the
// gated operation list.
func (h *Handler) QueueNames() []string {
	return h.collection.QueueNames()
}

// Stats returns a flat string-keyed snapshot of queue counters for
// STAT/dump_stats responses. Diagnostic; ungated.
func (h *Handler) Stats(queueName string) map[string]string {
	return h.collection.Stats(queueName)
}

// CurrentStatus returns the operator-facing server status string.
func (h *Handler) CurrentStatus() (string, error) {
	status, ok := h.gate.Status()
	if !ok {
		return "", ErrStatusNotConfigured
	}
	return status, nil
}

func (h *Handler) setStatus(s ServerState) error {
	return h.gate.SetStatus(s)
}

// MarkUp, MarkReadOnly and MarkQuiescent drive the shared ServerStatus, if
// one is configured.
func (h *Handler) MarkUp() error        { return h.setStatus(StateUp) }
func (h *Handler) MarkReadOnly() error  { return h.setStatus(StateReadOnly) }
func (h *Handler) MarkQuiescent() error { return h.setStatus(StateQuiescent) }

// Shutdown schedules an asynchronous server-wide shutdown after delay,
// giving the adapter time to flush the response first.
func (h *Handler) Shutdown(delay time.Duration) {
	if h.shutdownFn == nil {
		return
	}
	go h.shutdownFn(delay)
}

// Finish tears the session down: aborts every pending read, cancels every
// in-flight waiter, and releases the session slot. Idempotent and safe to
// call concurrently with an in-flight GetItem resolving on its own.
func (h *Handler) Finish() {
	if !h.sess.finished.CompareAndSwap(false, true) {
		return
	}
	h.sess.waiters.cancelAll()
	h.sess.pendingReads.CancelAll(func(queueName string, xid uint32) {
		if err := h.collection.Unremove(queueName, xid); err != nil {
			logger.Warn("unremove during finish failed", logger.Queue(queueName), logger.XID(xid), logger.Err(err))
		}
	})
	h.auditSink.RecordFinish(h.sess.SessionID, h.sess.ClientAddr, h.sess.CreatedAt, time.Now(), h.sess.commandCountsSnapshot())
	h.registry.Release()
}
