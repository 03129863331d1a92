package main

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

type connState int32

const (
	stateConnecting connState = iota
	stateOpen
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// connection is one client socket. The reader runs in the handler
// goroutine; the writer owns all writes except control frames gorilla sends
// on its own.
type connection struct {
	id    int
	state atomic.Int32
	w     websocketManager
	send  chan frame
	h     *hub
	log   *slog.Logger
	ping  *subscriber

	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(w websocketManager, h *hub) *connection {
	return &connection{
		w:    w,
		send: make(chan frame, h.opts.sendBuffer),
		h:    h,
		log:  h.log,
		done: make(chan struct{}),
	}
}

// open gives c its id and per-connection logger and marks it open. The
// registry calls it under its lock, before anyone else can see c.
func (c *connection) open(id int) {
	c.id = id
	c.log = c.h.log.With("conn", id)
	c.setState(stateOpen)
}

func (c *connection) setState(s connState) {
	c.state.Store(int32(s))
}

func (c *connection) getState() connState {
	return connState(c.state.Load())
}

// run serves c until its reader stops. Whatever ends the reader, c is
// unregistered and closed exactly once on the way out.
func (c *connection) run() {
	c.h.register(c)
	defer func() {
		c.h.unregister(c)
		c.close()
	}()
	go c.writer()
	c.reader()
}

func (c *connection) reader() {
	c.w.wsSetReadLimit(c.h.opts.readLimit)
	c.w.wsSetReadDeadline(c.h.opts.pongWait)
	c.w.wsSetPongHandler(c.h.opts.pongWait)
	for {
		if err := c.readMessage(); err != nil {
			c.logReadError(err)
			return
		}
	}
}

// readMessage reads one frame and hands it to the hub.
func (c *connection) readMessage() error {
	kind, message, err := c.w.wsReadMessage()
	if err != nil {
		return err
	}
	c.h.m.incr("conn.recv", 1)
	c.h.m.size("conn.recv.bytes", len(message))
	c.h.dispatch(c, kind, message)
	return nil
}

func (c *connection) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeds read limit", "limit", c.h.opts.readLimit, "err", err)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Debug("client closed connection", "err", err)
	case errors.Is(err, io.EOF), errors.Is(err, errConnClosed), c.isClosed():
		c.log.Debug("connection closed", "err", err)
	case websocket.IsUnexpectedCloseError(err):
		c.log.Info("unexpected close", "err", err)
	default:
		c.log.Warn("read error", "err", err)
	}
}

func (c *connection) writer() {
	var tick <-chan time.Time
	if c.ping != nil {
		tick = c.ping.tick
	}
	for {
		select {
		case f := <-c.send:
			if err := c.write(f.kind, f.payload); err != nil {
				c.log.Debug("write failed", "err", err)
				c.h.m.mark("write.errors", 1)
				c.close()
				return
			}
			c.h.m.incr("conn.send", 1)
		case _, ok := <-tick:
			if !ok {
				tick = nil
				continue
			}
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", "err", err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) write(kind int, payload []byte) error {
	c.w.wsSetWriteDeadline(c.h.opts.writeWait)
	return c.w.wsWriteMessage(kind, payload)
}

// enqueue queues f for the writer without blocking.
func (c *connection) enqueue(f frame) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSendBufferFull
	}
}

// close closes the socket and stops the writer. Safe to call from any
// goroutine, any number of times.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ping != nil {
			c.h.ping.unsubscribe(c.ping)
		}
		if err := c.w.wsClose(); err != nil {
			c.log.Debug("close socket", "err", err)
		}
	})
}

func (c *connection) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
