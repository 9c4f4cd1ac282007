package memcache

import (
	"bufio"
	"fmt"
	"sync"
)

// responseWriter serializes writes to one connection. Mirrors the
// mutex-guarded writer used for compound responses on multiplexed
// connections: a monitor stream and an ordinary reply must never
// interleave their bytes.
type responseWriter struct {
	mu sync.Mutex
	bw *bufio.Writer
}

func newResponseWriter(bw *bufio.Writer) *responseWriter {
	return &responseWriter{bw: bw}
}

func (w *responseWriter) writeValue(key string, flags int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.bw, "VALUE %s %d %d%s", key, flags, len(data), crlf); err != nil {
		return err
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(crlf); err != nil {
		return err
	}
	return w.bw.Flush()
}

// writeBlock writes several lines followed by a single flush, used for
// stats/dump_stats blocks that must not interleave with another response.
func (w *responseWriter) writeBlock(lines []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, line := range lines {
		if _, err := w.bw.WriteString(line); err != nil {
			return err
		}
		if _, err := w.bw.WriteString(crlf); err != nil {
			return err
		}
	}
	return w.bw.Flush()
}
