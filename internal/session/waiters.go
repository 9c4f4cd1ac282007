package session

import "sync"

// waiterID identifies one registered waiter within a session.
type waiterID uint64

// waiterSet tracks every in-flight asynchronous remove issued by a session.
// Protected by its own mutex, independent of PendingReadSet's.
type waiterSet struct {
	mu      sync.Mutex
	next    waiterID
	cancels map[waiterID]func()
}

func newWaiterSet() *waiterSet {
	return &waiterSet{cancels: make(map[waiterID]func())}
}

// register adds cancel to the set and returns a handle to deregister it
// later. cancel is the trigger that aborts the in-flight remove.
func (w *waiterSet) register(cancel func()) waiterID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	id := w.next
	w.cancels[id] = cancel
	return id
}

// deregister removes a waiter once its remove has resolved, failed, or
// been cancelled. Safe to call even if the waiter was already cancelled.
func (w *waiterSet) deregister(id waiterID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.cancels, id)
}

// cancelAll fires every registered cancellation trigger and clears the
// set. Safe to call concurrently with a waiter resolving on its own —
// deregister on an already-removed id is a no-op.
func (w *waiterSet) cancelAll() {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = make(map[waiterID]func())
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (w *waiterSet) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.cancels)
}
