package memcache

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/duraqio/duraq/internal/queue"
	"github.com/duraqio/duraq/internal/session"
	"github.com/duraqio/duraq/internal/storage"
)

func newTestConn(t *testing.T) (client net.Conn, handler *session.Handler, done chan struct{}) {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "journal"), storage.Config{Mode: storage.ModeNever})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	coll := queue.NewMemoryCollection(st)
	registry := session.NewRegistry()
	sess := registry.Create("test-client")
	gate := session.NewAvailabilityGate(registry.Count(), session.AlwaysAvailable, nil)
	h := session.NewHandler(sess, session.Config{
		Collection:   coll,
		Gate:         gate,
		Registry:     registry,
		MaxOpenReads: 2,
	})

	clientConn, serverConn := net.Pipe()
	done = make(chan struct{})
	go func() {
		Serve(context.Background(), serverConn, ConnConfig{Handler: h})
		close(done)
	}()
	return clientConn, h, done
}

func sendLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readLine(t *testing.T, br *bufio.Reader) string {
	t.Helper()
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func TestConn_SetThenGet(t *testing.T) {
	client, _, done := newTestConn(t)
	defer client.Close()
	br := bufio.NewReader(client)

	sendLine(t, client, "set orders 0 0 5")
	_, _ = client.Write([]byte("hello\r\n"))
	if got := readLine(t, br); got != respStored {
		t.Fatalf("expected STORED, got %q", got)
	}

	sendLine(t, client, "get orders")
	if got := readLine(t, br); !strings.HasPrefix(got, "VALUE orders 0 5") {
		t.Fatalf("expected VALUE header, got %q", got)
	}
	if got := readLine(t, br); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if got := readLine(t, br); got != respEnd {
		t.Fatalf("expected END, got %q", got)
	}

	sendLine(t, client, "quit")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("connection did not close after quit")
	}
}

func TestConn_GetEmptyQueue_ReturnsEnd(t *testing.T) {
	client, _, done := newTestConn(t)
	defer client.Close()
	br := bufio.NewReader(client)

	sendLine(t, client, "get nosuch")
	if got := readLine(t, br); got != respEnd {
		t.Fatalf("expected END, got %q", got)
	}

	sendLine(t, client, "quit")
	<-done
}

func TestConn_OpenThenConfirm(t *testing.T) {
	client, _, done := newTestConn(t)
	defer client.Close()
	br := bufio.NewReader(client)

	sendLine(t, client, "set q 0 0 1")
	_, _ = client.Write([]byte("x\r\n"))
	readLine(t, br)

	sendLine(t, client, "get q/open")
	valueLine := readLine(t, br)
	if !strings.HasPrefix(valueLine, "VALUE q ") {
		t.Fatalf("expected VALUE line, got %q", valueLine)
	}
	readLine(t, br) // payload
	if got := readLine(t, br); got != respEnd {
		t.Fatalf("expected END after open, got %q", got)
	}

	sendLine(t, client, "confirm q 1")
	if got := readLine(t, br); got != respEnd {
		t.Fatalf("expected END after confirm, got %q", got)
	}

	sendLine(t, client, "quit")
	<-done
}

func TestConn_UnknownCommand_ClientError(t *testing.T) {
	client, _, done := newTestConn(t)
	defer client.Close()
	br := bufio.NewReader(client)

	sendLine(t, client, "bogus")
	got := readLine(t, br)
	if !strings.HasPrefix(got, respClientError) {
		t.Fatalf("expected CLIENT_ERROR, got %q", got)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected disconnect after client error")
	}
}

func TestConn_Version(t *testing.T) {
	client, _, done := newTestConn(t)
	defer client.Close()
	br := bufio.NewReader(client)

	sendLine(t, client, "version")
	got := readLine(t, br)
	if got != "VERSION "+ProtocolVersion {
		t.Fatalf("expected version line, got %q", got)
	}

	sendLine(t, client, "quit")
	<-done
}

func TestConn_FlushAll(t *testing.T) {
	client, _, done := newTestConn(t)
	defer client.Close()
	br := bufio.NewReader(client)

	sendLine(t, client, "set q 0 0 1")
	_, _ = client.Write([]byte("x\r\n"))
	readLine(t, br)

	sendLine(t, client, "flush_all")
	got := readLine(t, br)
	if got != "Flushed all queues." {
		t.Fatalf("expected flush_all confirmation, got %q", got)
	}

	sendLine(t, client, "get q")
	if got := readLine(t, br); got != respEnd {
		t.Fatalf("expected empty queue after flush_all, got %q", got)
	}

	sendLine(t, client, "quit")
	<-done
}
