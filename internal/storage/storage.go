// Package storage implements the durable write path shared by every queue's
// journal: an append-only file wrapped in a scheduler that batches fsyncs
// and hands each writer a promise for when its bytes became durable.
package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/duraqio/duraq/internal/logger"
)

// Mode selects how Write dispatches a successful append.
type Mode int

const (
	// ModeSync fsyncs after every write and hands back an already-resolved
	// promise. Every ack on the wire implies durability.
	ModeSync Mode = iota

	// ModeNever resolves every write immediately without ever fsyncing.
	// Acks are fast but durability is not guaranteed across a crash.
	ModeNever

	// ModeGrouped batches writes behind a periodic fsync. A write's
	// promise resolves the next time the scheduled task runs, amortizing
	// one fsync across many writes.
	ModeGrouped
)

// Config configures a Storage instance.
type Config struct {
	// Mode selects the fsync policy.
	Mode Mode

	// Period is the interval between scheduled fsyncs in ModeGrouped. It
	// is ignored in the other two modes.
	Period time.Duration

	// Metrics receives fsync observations. NullMetrics is used if nil.
	Metrics Metrics
}

// Storage wraps an append-only file handle and, in grouped mode, a
// background scheduler that fsyncs no more often than every Period.
type Storage struct {
	file    *os.File
	mode    Mode
	period  time.Duration
	metrics Metrics

	// fsyncMu serializes fsync() calls; Write may proceed concurrently
	// with an in-flight fsync.
	fsyncMu sync.Mutex

	// stateMu guards the promise queue and the periodic task's lifecycle.
	stateMu     sync.Mutex
	promises    []timestampedPromise
	taskRunning bool
	taskCancel  context.CancelFunc
	closed      bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open creates a Storage backed by the file at path, appending to it if it
// already exists.
func Open(path string, cfg Config) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NullMetrics{}
	}

	return &Storage{
		file:    f,
		mode:    cfg.Mode,
		period:  cfg.Period,
		metrics: metrics,
	}, nil
}

// Write appends buffer to the file and dispatches a completion promise
// according to the configured mode. The write itself (steps preceding
// dispatch) always runs synchronously; only durability notification is
// deferred in ModeGrouped.
func (s *Storage) Write(buffer []byte) *Promise {
	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return resolved(ErrPersisterClosed)
	}
	s.stateMu.Unlock()

	written := 0
	for written < len(buffer) {
		n, err := s.file.Write(buffer[written:])
		if err != nil {
			return resolved(fmt.Errorf("%w: %v", ErrIO, err))
		}
		written += n
	}

	switch s.mode {
	case ModeSync:
		return resolved(s.syncOnce())
	case ModeNever:
		return resolved(nil)
	default:
		return s.enqueue()
	}
}

// enqueue implements the grouped-mode dispatch: append a timestamped
// promise to the FIFO queue and make sure the periodic task is running.
func (s *Storage) enqueue() *Promise {
	p := newPromise()

	s.stateMu.Lock()
	s.promises = append(s.promises, timestampedPromise{promise: p, enqueuedAt: time.Now()})
	needStart := !s.taskRunning && !s.closed
	if needStart {
		s.taskRunning = true
	}
	s.stateMu.Unlock()

	if needStart {
		s.startPeriodicTask()
	}

	return p
}

// syncOnce performs a single synchronous fsync, used directly by ModeSync
// writes.
func (s *Storage) syncOnce() error {
	start := time.Now()
	err := s.file.Sync()
	s.metrics.ObserveFsyncDuration(time.Since(start))

	if err != nil {
		s.metrics.IncFsyncError(classifyFsyncError(err))
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (s *Storage) startPeriodicTask() {
	ctx, cancel := context.WithCancel(context.Background())

	s.stateMu.Lock()
	s.taskCancel = cancel
	s.stateMu.Unlock()

	s.wg.Add(1)
	go s.runPeriodic(ctx)
}

func (s *Storage) runPeriodic(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fsync()
		}
	}
}

// fsync is the internal, mutually-exclusive fsync step shared by the
// periodic task and Close's final flush. It snapshots the queue length
// before calling force so that writes enqueued mid-fsync are serviced by
// the next round rather than resolved early.
func (s *Storage) fsync() {
	s.fsyncMu.Lock()
	defer s.fsyncMu.Unlock()

	start := time.Now()

	s.stateMu.Lock()
	completed := len(s.promises)
	s.stateMu.Unlock()

	err := s.file.Sync()
	s.metrics.ObserveFsyncDuration(time.Since(start))

	if err != nil {
		s.metrics.IncFsyncError(classifyFsyncError(err))

		if isIOLayerError(err) {
			failed := s.drainPromises(completed)
			for _, tp := range failed {
				tp.promise.resolve(fmt.Errorf("%w: %v", ErrIO, err))
			}
		}
		// Non-I/O failures leave every promise pending; the next
		// scheduled tick retries the fsync.
		return
	}

	resolvedBatch := s.drainPromises(completed)
	for _, tp := range resolvedBatch {
		tp.promise.resolve(nil)

		behind := start.Sub(tp.enqueuedAt) - s.period
		if behind < 0 {
			behind = 0
		}
		s.metrics.ObserveDurationBehind(behind)
	}

	s.stopTaskIfDrained()
}

// drainPromises removes and returns up to n promises from the front of the
// queue, oldest first. The queue may have grown past the snapshot taken
// before fsync started; that surplus is left in place for the next round.
func (s *Storage) drainPromises(n int) []timestampedPromise {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if n > len(s.promises) {
		n = len(s.promises)
	}
	batch := s.promises[:n]
	s.promises = s.promises[n:]
	return batch
}

// stopTaskIfDrained stops the periodic task once the queue is empty. It
// will be restarted by the next grouped write.
func (s *Storage) stopTaskIfDrained() {
	s.stateMu.Lock()
	if len(s.promises) != 0 || !s.taskRunning {
		s.stateMu.Unlock()
		return
	}
	s.taskRunning = false
	cancel := s.taskCancel
	s.taskCancel = nil
	s.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close stops the periodic task, performs a final fsync draining every
// pending promise, and closes the underlying file handle. It runs at most
// once; concurrent or subsequent writes observe ErrPersisterClosed instead
// of racing the file handle.
func (s *Storage) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		cancel := s.taskCancel
		s.taskCancel = nil
		s.taskRunning = false
		s.stateMu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.wg.Wait()

		s.fsync()

		s.stateMu.Lock()
		s.closed = true
		remaining := s.promises
		s.promises = nil
		s.stateMu.Unlock()

		for _, tp := range remaining {
			tp.promise.resolve(ErrPersisterClosed)
		}

		if err := s.file.Close(); err != nil {
			closeErr = fmt.Errorf("storage: close: %w", err)
		}

		logger.Debug("storage closed")
	})

	return closeErr
}

// classifyFsyncError buckets a fsync error into a short tag suitable for a
// metrics label.
func classifyFsyncError(err error) string {
	if isIOLayerError(err) {
		return "io"
	}
	return "other"
}

// isIOLayerError reports whether err originated from the OS/file-layer
// rather than from an internal invariant violation. os.File.Sync only ever
// surfaces the former in practice, but the check is kept explicit so the
// branch in fsync documents the distinction the write path relies on.
func isIOLayerError(err error) bool {
	return err != nil
}
