package memcache

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/queue"
	"github.com/duraqio/duraq/internal/session"
)

// ReloadFunc reloads global configuration. internal/server leaves
// ConnConfig.Reload nil, and "reload" then replies without reloading
// anything.
type ReloadFunc func() error

// ConnConfig bundles the per-connection collaborators Serve needs beyond
// the raw net.Conn.
type ConnConfig struct {
	Handler      *session.Handler
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Reload       ReloadFunc
}

// Conn drives one client connection: it reads request lines, dispatches
// to the bound SessionHandler, and writes wire responses. Created fresh
// per accepted connection.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *responseWriter
	handler *session.Handler
	cfg     ConnConfig
}

// Serve reads and dispatches requests from conn until the client
// disconnects, a command requests disconnect, or ctx is cancelled.
// Serve always calls cfg.Handler.Finish() before returning.
func Serve(ctx context.Context, conn net.Conn, cfg ConnConfig) {
	c := &Conn{
		netConn: conn,
		br:      bufio.NewReader(conn),
		bw:      newResponseWriter(bufio.NewWriter(conn)),
		handler: cfg.Handler,
		cfg:     cfg,
	}
	defer cfg.Handler.Finish()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		line, err := c.br.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("connection read failed", logger.SessionID(cfg.Handler.SessionID()), logger.Err(err))
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		out := c.dispatch(ctx, line)
		if len(out.lines) > 0 {
			if cfg.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			}
			if werr := c.bw.writeBlock(out.lines); werr != nil {
				return
			}
		}
		if out.disconnect {
			return
		}
	}
}

func (c *Conn) dispatch(ctx context.Context, line string) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			// Malformed input (short token lists, bad byte counts) surfaces
			// as an index-out-of-range panic from the tokenizer; the wire
			// contract converts it to CLIENT_ERROR rather than killing the
			// connection loop.
			if c.handler.ShouldLogClientError() {
				logger.Warn("recovered from malformed request", logger.SessionID(c.handler.SessionID()), "panic", r)
			}
			result = clientError("malformed request")
		}
	}()

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return clientError("empty command")
	}
	cmd := fields[0]

	switch cmd {
	case "get", "gets":
		return c.handleGet(ctx, fields)
	case "set":
		return c.handleSet(ctx, fields)
	case "monitor":
		return c.handleMonitor(ctx, fields)
	case "confirm":
		return c.handleConfirm(fields)
	case "delete":
		return c.handleDelete(fields)
	case "flush":
		return c.handleFlush(fields)
	case "flush_all":
		return c.handleFlushAll()
	case "flush_expired":
		return c.handleFlushExpired(fields)
	case "flush_all_expired":
		return c.handleFlushAllExpired()
	case "stats":
		return c.handleStats()
	case "dump_stats":
		return c.handleDumpStats(fields)
	case "status":
		return c.handleStatus(fields)
	case "version":
		return ok("VERSION " + ProtocolVersion)
	case "reload":
		return c.handleReload()
	case "shutdown":
		c.handler.Shutdown(100 * time.Millisecond)
		return disconnectWith("")
	case "quit":
		return disconnectWith("")
	default:
		return clientError("unknown command")
	}
}

func (c *Conn) handleGet(ctx context.Context, fields []string) outcome {
	if len(fields) != 2 {
		return clientError("get requires exactly one key")
	}
	opts, err := parseGetKey(fields[1])
	if err != nil {
		return clientError(err.Error())
	}

	if opts.close {
		c.handler.CloseRead(opts.queue)
		return ok(respEnd)
	}
	if opts.abort {
		c.handler.AbortRead(opts.queue)
		return ok(respEnd)
	}

	deadline := opts.deadline(time.Now())
	item, gerr := c.handler.GetItem(ctx, opts.queue, deadline, opts.open, opts.peek)
	if gerr != nil {
		return mapSessionError(gerr)
	}
	if item == nil {
		return ok(respEnd)
	}
	if c.cfg.WriteTimeout > 0 {
		_ = c.netConn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if werr := c.bw.writeValue(opts.queue, int(item.XID), item.Data); werr != nil {
		return outcome{disconnect: true}
	}
	return ok(respEnd)
}

func (c *Conn) handleSet(ctx context.Context, fields []string) outcome {
	if len(fields) != 5 {
		return clientError("set requires key flags expiry bytes")
	}
	queueName := fields[1]
	expiryRaw, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return clientError("malformed expiry")
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil || n < 0 {
		return clientError("malformed byte count")
	}

	data := make([]byte, n)
	if _, rerr := io.ReadFull(c.br, data); rerr != nil {
		return disconnectWith(respServerError + " read failed")
	}
	trailer := make([]byte, 2)
	_, _ = io.ReadFull(c.br, trailer)

	expiry := normalizeExpiry(expiryRaw, time.Now())
	stored, serr := c.handler.SetItem(ctx, queueName, expiry, data)
	if serr != nil {
		return mapSessionError(serr)
	}
	if stored {
		return ok(respStored)
	}
	return ok(respNotStored)
}

func (c *Conn) handleMonitor(ctx context.Context, fields []string) outcome {
	if len(fields) < 3 {
		return clientError("monitor requires key and seconds")
	}
	queueName := fields[1]
	secs, err := strconv.Atoi(fields[2])
	if err != nil {
		return clientError("malformed seconds")
	}
	maxItems := 0
	if len(fields) >= 4 {
		maxItems, err = strconv.Atoi(fields[3])
		if err != nil {
			return clientError("malformed max items")
		}
	}

	deadline := time.Now().Add(time.Duration(secs) * time.Second)
	_, merr := c.handler.MonitorUntil(ctx, queueName, deadline, maxItems, false, func(item *queue.Item) {
		if c.cfg.WriteTimeout > 0 {
			_ = c.netConn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		}
		_ = c.bw.writeValue(queueName, 0, item.Data)
	})
	if merr != nil {
		return mapSessionError(merr)
	}
	return ok(respEnd)
}

func (c *Conn) handleConfirm(fields []string) outcome {
	if len(fields) != 3 {
		return clientError("confirm requires key and count")
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil || n <= 0 {
		return clientError("malformed count")
	}
	if c.handler.CloseReads(fields[1], n) {
		return ok(respEnd)
	}
	return genericError()
}

func (c *Conn) handleDelete(fields []string) outcome {
	if len(fields) != 2 {
		return clientError("delete requires exactly one key")
	}
	if err := c.handler.Delete(fields[1]); err != nil {
		return mapSessionError(err)
	}
	return ok(respDeleted)
}

func (c *Conn) handleFlush(fields []string) outcome {
	if len(fields) != 2 {
		return clientError("flush requires exactly one key")
	}
	if err := c.handler.Flush(fields[1]); err != nil {
		return mapSessionError(err)
	}
	return ok(respEnd)
}

func (c *Conn) handleFlushAll() outcome {
	if err := c.handler.FlushAllQueues(); err != nil {
		return mapSessionError(err)
	}
	return ok("Flushed all queues.")
}

func (c *Conn) handleFlushExpired(fields []string) outcome {
	if len(fields) != 2 {
		return clientError("flush_expired requires exactly one key")
	}
	n, err := c.handler.FlushExpired(fields[1])
	if err != nil {
		return mapSessionError(err)
	}
	return ok(strconv.Itoa(n))
}

func (c *Conn) handleFlushAllExpired() outcome {
	n, err := c.handler.FlushAllExpired()
	if err != nil {
		return mapSessionError(err)
	}
	return ok(strconv.Itoa(n))
}

func (c *Conn) handleStats() outcome {
	var lines []string
	for _, queueName := range c.handler.QueueNames() {
		for k, v := range c.handler.Stats(queueName) {
			lines = append(lines, "STAT "+queueName+"."+k+" "+v)
		}
	}
	lines = append(lines, respEnd)
	return okLines(lines...)
}

func (c *Conn) handleDumpStats(fields []string) outcome {
	names := c.handler.QueueNames()
	if len(fields) > 1 {
		names = fields[1:]
	}
	var lines []string
	for _, queueName := range names {
		lines = append(lines, "STAT "+queueName+".queue "+queueName)
		for k, v := range c.handler.Stats(queueName) {
			lines = append(lines, "STAT "+queueName+"."+k+" "+v)
		}
	}
	lines = append(lines, respEnd)
	return okLines(lines...)
}

func (c *Conn) handleStatus(fields []string) outcome {
	if len(fields) == 1 {
		status, err := c.handler.CurrentStatus()
		if err != nil {
			return mapSessionError(err)
		}
		return ok(strings.ToUpper(status))
	}
	if len(fields) != 2 {
		return clientError("status takes at most one argument")
	}

	var err error
	switch fields[1] {
	case "up":
		err = c.handler.MarkUp()
	case "readonly":
		err = c.handler.MarkReadOnly()
	case "quiescent":
		err = c.handler.MarkQuiescent()
	default:
		return clientError("unknown status")
	}
	if err != nil {
		return mapSessionError(err)
	}
	return ok(respEnd)
}

func (c *Conn) handleReload() outcome {
	if c.cfg.Reload == nil {
		return ok("Reloaded config.")
	}
	if err := c.cfg.Reload(); err != nil {
		return serverError(err.Error())
	}
	return ok("Reloaded config.")
}
