package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/duraqio/duraq/internal/queue"
	"github.com/duraqio/duraq/internal/storage"
)

type recordingAuditSink struct {
	mu       sync.Mutex
	connects int
	finishes int
	lastID   uint64
	lastAddr string
	lastCmds map[string]int64
}

func (r *recordingAuditSink) RecordConnect(sessionID uint64, clientAddr string, connectedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	r.lastID = sessionID
	r.lastAddr = clientAddr
}

func (r *recordingAuditSink) RecordFinish(sessionID uint64, clientAddr string, connectedAt, finishedAt time.Time, commandCounts map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishes++
	r.lastID = sessionID
	r.lastAddr = clientAddr
	r.lastCmds = commandCounts
}

var _ AuditSink = (*recordingAuditSink)(nil)

func TestNewHandler_RecordsConnect(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "journal"), storage.Config{Mode: storage.ModeNever})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	coll := queue.NewMemoryCollection(st)
	registry := NewRegistry()
	sess := registry.Create("10.0.0.1:9")
	gate := NewAvailabilityGate(registry.Count(), AlwaysAvailable, nil)
	sink := &recordingAuditSink{}

	h := NewHandler(sess, Config{
		Collection:   coll,
		Gate:         gate,
		Registry:     registry,
		AuditSink:    sink,
		MaxOpenReads: 2,
	})
	defer h.Finish()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.connects != 1 {
		t.Fatalf("expected 1 connect, got %d", sink.connects)
	}
	if sink.lastID != sess.SessionID || sink.lastAddr != "10.0.0.1:9" {
		t.Fatalf("unexpected connect record: id=%d addr=%s", sink.lastID, sink.lastAddr)
	}
}

func TestHandler_Finish_RecordsCommandCounts(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "journal"), storage.Config{Mode: storage.ModeNever})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	coll := queue.NewMemoryCollection(st)
	registry := NewRegistry()
	sess := registry.Create("10.0.0.2:9")
	gate := NewAvailabilityGate(registry.Count(), AlwaysAvailable, nil)
	sink := &recordingAuditSink{}

	h := NewHandler(sess, Config{
		Collection:   coll,
		Gate:         gate,
		Registry:     registry,
		AuditSink:    sink,
		MaxOpenReads: 2,
	})

	ctx := context.Background()
	if _, err := h.SetItem(ctx, "q", time.Time{}, []byte("a")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := h.GetItem(ctx, "q", time.Time{}, false, true); err != nil {
		t.Fatalf("peek: %v", err)
	}
	if err := h.Flush("q"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	h.Finish()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.finishes != 1 {
		t.Fatalf("expected 1 finish, got %d", sink.finishes)
	}
	if sink.lastCmds["set"] != 1 || sink.lastCmds["peek"] != 1 || sink.lastCmds["flush"] != 1 {
		t.Fatalf("unexpected command counts: %+v", sink.lastCmds)
	}
}

func TestHandler_Finish_Idempotent_RecordsOnce(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "journal"), storage.Config{Mode: storage.ModeNever})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	coll := queue.NewMemoryCollection(st)
	registry := NewRegistry()
	sess := registry.Create("10.0.0.3:9")
	gate := NewAvailabilityGate(registry.Count(), AlwaysAvailable, nil)
	sink := &recordingAuditSink{}

	h := NewHandler(sess, Config{
		Collection:   coll,
		Gate:         gate,
		Registry:     registry,
		AuditSink:    sink,
		MaxOpenReads: 2,
	})

	h.Finish()
	h.Finish()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.finishes != 1 {
		t.Fatalf("expected finish recorded exactly once, got %d", sink.finishes)
	}
}
