package memcache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// getOptions is the decoded form of the `/`-separated suffix on a get/gets
// key: `t=<ms>`, `open`, `close`, `abort`, `peek`.
type getOptions struct {
	queue      string
	timeoutMs  int64
	hasTimeout bool
	open       bool
	close      bool
	abort      bool
	peek       bool
}

// errMalformedOptions marks a get key that failed option decoding or
// violates a forbidden-combination rule. Always maps to CLIENT_ERROR.
var errMalformedOptions = fmt.Errorf("memcache: malformed get options")

// parseGetKey splits a get key of the form `queue[/opt]*` and validates the
// option combination. `/` is reserved inside option syntax; a queue name
// itself may not be empty.
func parseGetKey(raw string) (getOptions, error) {
	parts := strings.Split(raw, "/")
	opts := getOptions{queue: parts[0]}
	if opts.queue == "" {
		return opts, errMalformedOptions
	}

	for _, opt := range parts[1:] {
		switch {
		case opt == "open":
			opts.open = true
		case opt == "close":
			opts.close = true
		case opt == "abort":
			opts.abort = true
		case opt == "peek":
			opts.peek = true
		case strings.HasPrefix(opt, "t="):
			ms, err := strconv.ParseInt(opt[len("t="):], 10, 64)
			if err != nil {
				return opts, errMalformedOptions
			}
			opts.timeoutMs = ms
			opts.hasTimeout = true
		default:
			return opts, errMalformedOptions
		}
	}

	if (opts.peek || opts.abort) && (opts.open || opts.close) {
		return opts, errMalformedOptions
	}
	if opts.peek && opts.abort {
		return opts, errMalformedOptions
	}
	return opts, nil
}

// deadline converts a relative millisecond timeout into an absolute
// deadline, or the zero Time if none was given.
func (o getOptions) deadline(now time.Time) time.Time {
	if !o.hasTimeout {
		return time.Time{}
	}
	return now.Add(time.Duration(o.timeoutMs) * time.Millisecond)
}

// nonTransactional reports whether this get carries none of open/close/
// abort/peek — the form forbidden while a pending read exists on the queue.
func (o getOptions) nonTransactional() bool {
	return !o.open && !o.close && !o.abort && !o.peek
}

// normalizeExpiry applies the set command's expiry encoding: 0 means no
// expiry, values under 1e6 are seconds-from-now, values at or above 1e6 are
// absolute unix seconds.
func normalizeExpiry(raw int64, now time.Time) time.Time {
	switch {
	case raw == 0:
		return time.Time{}
	case raw < 1_000_000:
		return now.Add(time.Duration(raw) * time.Second)
	default:
		return time.Unix(raw, 0)
	}
}
