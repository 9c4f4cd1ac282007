package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStorage(t *testing.T, cfg Config) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal")
	s, err := Open(path, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWrite_SyncMode_ResolvesImmediately(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeSync})

	p := s.Write([]byte("hello"))
	if err := p.Wait(); err != nil {
		t.Fatalf("expected resolved promise with no error, got %v", err)
	}
}

func TestWrite_NeverMode_ResolvesWithoutFsync(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeNever})

	p := s.Write([]byte("hello"))
	if err := p.Wait(); err != nil {
		t.Fatalf("expected resolved promise, got %v", err)
	}
}

func TestWrite_GroupedMode_ResolvesAfterPeriod(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeGrouped, Period: 20 * time.Millisecond})

	p := s.Write([]byte("hello"))

	select {
	case <-p.done:
		t.Fatal("promise resolved before the first scheduled fsync")
	case <-time.After(5 * time.Millisecond):
	}

	if err := p.Wait(); err != nil {
		t.Fatalf("expected resolved promise after period elapses, got %v", err)
	}
}

// TestWrite_GroupedMode_ResolvesInEnqueueOrder reproduces the scenario from
// the broker's write-batching contract: three writes issued within the same
// period all resolve together on the first fsync, in the order they were
// enqueued.
func TestWrite_GroupedMode_ResolvesInEnqueueOrder(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeGrouped, Period: 50 * time.Millisecond})

	mu := atomicOrder{ch: make(chan int, 16)}

	for i := 0; i < 3; i++ {
		i := i
		p := s.Write([]byte("w"))
		go func() {
			_ = p.Wait()
			mu.append(i)
		}()
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)

	resolvedOrder := mu.snapshot()
	if len(resolvedOrder) != 3 {
		t.Fatalf("expected all 3 writes resolved, got %v", resolvedOrder)
	}
	for i, v := range resolvedOrder {
		if v != i {
			t.Fatalf("expected resolution order [0 1 2], got %v", resolvedOrder)
		}
	}
}

// atomicOrder records completion order from multiple goroutines without a
// data race.
type atomicOrder struct {
	ch chan int
}

func (a *atomicOrder) append(i int) {
	if a.ch == nil {
		a.ch = make(chan int, 16)
	}
	a.ch <- i
}

func (a *atomicOrder) snapshot() []int {
	var out []int
	for {
		select {
		case v := <-a.ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestTaskStops_WhenQueueDrains(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeGrouped, Period: 10 * time.Millisecond})

	p := s.Write([]byte("x"))
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Give the fsync goroutine a moment to observe the drained queue and
	// stop the periodic task.
	time.Sleep(20 * time.Millisecond)

	s.stateMu.Lock()
	running := s.taskRunning
	s.stateMu.Unlock()

	if running {
		t.Fatal("expected periodic task to stop once the promise queue drained")
	}
}

func TestClose_ResolvesPendingPromises(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	s, err := Open(path, Config{Mode: ModeGrouped, Period: time.Hour})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	p := s.Write([]byte("pending"))

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := p.Wait(); err != nil {
		t.Fatalf("expected Close's final fsync to resolve pending write, got %v", err)
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeSync})

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWrite_AfterClose_FailsWithErrPersisterClosed(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeSync})

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p := s.Write([]byte("too late"))
	if err := p.Wait(); !errors.Is(err, ErrPersisterClosed) {
		t.Fatalf("expected ErrPersisterClosed, got %v", err)
	}
}

func TestPromise_WaitContext_CancelledBeforeResolve(t *testing.T) {
	p := newPromise()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.WaitContext(ctx); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestWrite_FileHandleClosed_ReportsIOError(t *testing.T) {
	s := openTestStorage(t, Config{Mode: ModeSync})

	if err := s.file.Close(); err != nil {
		t.Fatalf("failed to force-close underlying file: %v", err)
	}

	p := s.Write([]byte("x"))
	if err := p.Wait(); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO after underlying file closed, got %v", err)
	}

	// Prevent the deferred Close in openTestStorage from double-closing.
	s.file, _ = os.Open(os.DevNull)
}
