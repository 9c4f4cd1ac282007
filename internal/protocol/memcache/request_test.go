package memcache

import (
	"testing"
	"time"
)

func TestParseGetKey_PlainQueue(t *testing.T) {
	opts, err := parseGetKey("orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.queue != "orders" || opts.open || opts.peek || opts.abort || opts.close {
		t.Fatalf("unexpected opts: %+v", opts)
	}
}

func TestParseGetKey_WithTimeoutAndOpen(t *testing.T) {
	opts, err := parseGetKey("orders/t=5000/open")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.open || !opts.hasTimeout || opts.timeoutMs != 5000 {
		t.Fatalf("unexpected opts: %+v", opts)
	}
}

func TestParseGetKey_EmptyQueue_Rejected(t *testing.T) {
	if _, err := parseGetKey(""); err != errMalformedOptions {
		t.Fatalf("expected malformed options error, got %v", err)
	}
}

func TestParseGetKey_BadTimeout_Rejected(t *testing.T) {
	if _, err := parseGetKey("q/t=notanumber"); err != errMalformedOptions {
		t.Fatalf("expected malformed options error, got %v", err)
	}
}

func TestParseGetKey_UnknownOption_Rejected(t *testing.T) {
	if _, err := parseGetKey("q/bogus"); err != errMalformedOptions {
		t.Fatalf("expected malformed options error, got %v", err)
	}
}

func TestParseGetKey_PeekWithOpen_Forbidden(t *testing.T) {
	if _, err := parseGetKey("q/peek/open"); err != errMalformedOptions {
		t.Fatalf("expected forbidden combination error, got %v", err)
	}
}

func TestParseGetKey_AbortWithClose_Forbidden(t *testing.T) {
	if _, err := parseGetKey("q/abort/close"); err != errMalformedOptions {
		t.Fatalf("expected forbidden combination error, got %v", err)
	}
}

func TestParseGetKey_PeekWithAbort_Forbidden(t *testing.T) {
	if _, err := parseGetKey("q/peek/abort"); err != errMalformedOptions {
		t.Fatalf("expected forbidden combination error, got %v", err)
	}
}

func TestGetOptions_NonTransactional(t *testing.T) {
	opts, _ := parseGetKey("q")
	if !opts.nonTransactional() {
		t.Fatal("expected plain get to be non-transactional")
	}
	opts, _ = parseGetKey("q/open")
	if opts.nonTransactional() {
		t.Fatal("expected open get to be transactional")
	}
}

func TestNormalizeExpiry_Zero_NoExpiry(t *testing.T) {
	got := normalizeExpiry(0, time.Now())
	if !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}

func TestNormalizeExpiry_Relative(t *testing.T) {
	now := time.Now()
	got := normalizeExpiry(30, now)
	want := now.Add(30 * time.Second)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeExpiry_Absolute(t *testing.T) {
	got := normalizeExpiry(2_000_000, time.Now())
	if got.Unix() != 2_000_000 {
		t.Fatalf("expected unix 2000000, got %v", got.Unix())
	}
}
