package session

import "sync"

// PendingReadSet tracks reliable-read transaction ids reserved by one
// session, grouped by queue and insertion-ordered within each queue. It is
// bounded in total by maxOpenReads, a precondition its caller (the
// SessionHandler) checks before calling add.
type PendingReadSet struct {
	mu   sync.Mutex
	byQ  map[string][]uint32
	total int
}

// NewPendingReadSet creates an empty set.
func NewPendingReadSet() *PendingReadSet {
	return &PendingReadSet{byQ: make(map[string][]uint32)}
}

// Add appends xid to queue's sequence.
func (s *PendingReadSet) Add(queue string, xid uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byQ[queue] = append(s.byQ[queue], xid)
	s.total++
}

// Pop removes and returns the oldest xid for queue, or (0, false).
func (s *PendingReadSet) Pop(queue string) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byQ[queue]
	if len(seq) == 0 {
		return 0, false
	}
	xid := seq[0]
	s.setSeqLocked(queue, seq[1:])
	s.total--
	return xid, true
}

// PopN removes and returns up to the oldest n xids for queue. It may
// return fewer than n.
func (s *PendingReadSet) PopN(queue string, n int) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byQ[queue]
	if n > len(seq) {
		n = len(seq)
	}
	popped := append([]uint32(nil), seq[:n]...)
	s.setSeqLocked(queue, seq[n:])
	s.total -= n
	return popped
}

// PopAll drains queue entirely and returns what was removed.
func (s *PendingReadSet) PopAll(queue string) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byQ[queue]
	s.total -= len(seq)
	s.setSeqLocked(queue, nil)
	return seq
}

// Peek returns a non-destructive snapshot of queue's pending xids.
func (s *PendingReadSet) Peek(queue string) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.byQ[queue]...)
}

// Size returns the number of pending xids for queue.
func (s *PendingReadSet) Size(queue string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byQ[queue])
}

// Total returns the number of pending xids across every queue.
func (s *PendingReadSet) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Remove removes any of ids present in queue's sequence and returns the
// ones actually removed.
func (s *PendingReadSet) Remove(queue string, ids map[uint32]struct{}) map[uint32]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.byQ[queue]
	removed := make(map[uint32]struct{})
	kept := seq[:0]
	for _, xid := range seq {
		if _, match := ids[xid]; match {
			removed[xid] = struct{}{}
			continue
		}
		kept = append(kept, xid)
	}
	s.setSeqLocked(queue, kept)
	s.total -= len(removed)
	return removed
}

// CancelAll atomically snapshots the entire set, clears it, then calls
// unremove for every xid it held. It returns the total count cancelled.
// unremove is invoked outside the lock so a slow collaborator cannot block
// other PendingReadSet operations.
func (s *PendingReadSet) CancelAll(unremove func(queue string, xid uint32)) int {
	s.mu.Lock()
	snapshot := s.byQ
	s.byQ = make(map[string][]uint32)
	s.total = 0
	s.mu.Unlock()

	count := 0
	for queue, xids := range snapshot {
		for _, xid := range xids {
			unremove(queue, xid)
			count++
		}
	}
	return count
}

func (s *PendingReadSet) setSeqLocked(queue string, seq []uint32) {
	if len(seq) == 0 {
		delete(s.byQ, queue)
		return
	}
	s.byQ[queue] = seq
}
