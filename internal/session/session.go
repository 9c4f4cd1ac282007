package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session is the per-connection state object: pending reliable-read
// transactions, in-flight waiters, and a monotonic finished flag. Created
// when the transport accepts a connection, destroyed when it calls
// Finish.
type Session struct {
	SessionID  uint64
	ClientAddr string
	CreatedAt  time.Time

	pendingReads *PendingReadSet
	waiters      *waiterSet
	finished     atomic.Bool

	firstClientErrorLogged atomic.Bool

	commandMu     sync.Mutex
	commandCounts map[string]int64
}

// newSession constructs a Session. Unexported: sessions are only created
// through a Registry so SessionID stays unique process-wide.
func newSession(id uint64, clientAddr string) *Session {
	return &Session{
		SessionID:     id,
		ClientAddr:    clientAddr,
		CreatedAt:     time.Now(),
		pendingReads:  NewPendingReadSet(),
		waiters:       newWaiterSet(),
		commandCounts: make(map[string]int64),
	}
}

// incCommand records one invocation of the named command against this
// session's lifetime total, for the audit log's per-session summary.
func (s *Session) incCommand(name string) {
	s.commandMu.Lock()
	s.commandCounts[name]++
	s.commandMu.Unlock()
}

// commandCountsSnapshot returns a copy of the session's command counts.
func (s *Session) commandCountsSnapshot() map[string]int64 {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	snapshot := make(map[string]int64, len(s.commandCounts))
	for k, v := range s.commandCounts {
		snapshot[k] = v
	}
	return snapshot
}

// Finished reports whether Finish has already been called on this
// session. Monotonic: once true, it never becomes false again.
func (s *Session) Finished() bool {
	return s.finished.Load()
}

// shouldLogClientError reports whether this is the first protocol-level
// client error observed on this session, and marks one as logged.
// Prevents client-induced log storms (spec §7).
func (s *Session) shouldLogClientError() bool {
	return s.firstClientErrorLogged.CompareAndSwap(false, true)
}

// Registry assigns session ids from a process-wide monotonic counter and
// tracks live sessions for administrative introspection (e.g. connection
// counts feeding the AvailabilityGate).
type Registry struct {
	nextID atomic.Uint64
	count  atomic.Int64
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create mints a new Session with a unique, process-wide monotonic id.
func (r *Registry) Create(clientAddr string) *Session {
	id := r.nextID.Add(1)
	r.count.Add(1)
	return newSession(id, clientAddr)
}

// Release decrements the live-session counter. Called once per session
// from Finish.
func (r *Registry) Release() {
	r.count.Add(-1)
}

// Count returns the number of currently live sessions.
func (r *Registry) Count() int64 {
	return r.count.Load()
}
