package main

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

type hubOptions struct {
	// Per-connection outbound queue depth.
	sendBuffer int
	// Largest inbound frame in bytes; zero means unlimited.
	readLimit int64
	// Time allowed for one write; zero means no deadline.
	writeWait time.Duration
	// Time allowed between pongs. Zero disables keepalive pings.
	pongWait time.Duration
}

// hub relays frames between connections. Text frames go through route;
// binary frames are forwarded as they are. A sender never receives its own
// frames.
type hub struct {
	reg  *registry
	m    *metrics
	log  *slog.Logger
	opts hubOptions
	ping *mTicker

	// Set once closeAll starts; no connection stays open after that.
	closing atomic.Bool
}

func newHub(opts hubOptions, m *metrics, log *slog.Logger) *hub {
	if opts.sendBuffer <= 0 {
		opts.sendBuffer = 256
	}
	h := &hub{
		reg:  newRegistry(),
		m:    m,
		log:  log,
		opts: opts,
	}
	if opts.pongWait > 0 {
		// Ping often enough that a healthy peer always pongs within pongWait.
		h.ping = newMTicker((opts.pongWait * 9) / 10)
	}
	return h
}

func (h *hub) register(c *connection) int {
	if h.ping != nil {
		c.ping = h.ping.subscribe()
	}
	id := h.reg.register(c)
	h.m.incr("websockets", 1)
	c.log.Info("client connected", "clients", h.reg.len())
	// closeAll flags before it snapshots the registry, so a connection
	// registered after that snapshot sees the flag here.
	if h.closing.Load() {
		c.log.Debug("hub closing, dropping client")
		c.close()
	}
	return id
}

func (h *hub) isClosing() bool {
	return h.closing.Load()
}

func (h *hub) unregister(c *connection) {
	if !h.reg.unregister(c) {
		return
	}
	h.m.decr("websockets", 1)
	c.log.Info("client disconnected", "clients", h.reg.len())
}

// dispatch routes one inbound frame from sender and fans the result out.
func (h *hub) dispatch(sender *connection, kind int, payload []byte) {
	out, ok, err := route(sender.id, kind, payload)
	if err != nil {
		h.m.incr("malformed", 1)
		sender.log.Warn("dropping frame", "err", err)
		return
	}
	if !ok {
		h.m.incr("ignored", 1)
		sender.log.Debug("ignoring frame", "kind", kind, "bytes", len(payload))
		return
	}
	h.broadcast(sender, out)
}

// broadcast offers f to every connection except sender and returns the
// number of recipients tried. A recipient that cannot take f does not stop
// delivery to the rest. A recipient whose queue is full is closed; its own
// reader then unregisters it.
func (h *hub) broadcast(sender *connection, f frame) int {
	attempts := 0
	for c := range h.reg.allExcept(sender) {
		attempts++
		err := c.enqueue(f)
		switch {
		case err == nil:
		case errors.Is(err, errSendBufferFull):
			h.m.mark("drops", 1)
			c.log.Warn("recipient too slow, closing")
			c.close()
		default:
			h.m.mark("drops", 1)
			c.log.Debug("recipient gone", "err", err)
		}
	}
	return attempts
}

// closeAll closes every open connection and stops keepalive pings. Any
// connection that registers afterwards is closed as soon as it registers.
func (h *hub) closeAll() {
	h.closing.Store(true)
	n := 0
	for c := range h.reg.allExcept(nil) {
		c.close()
		n++
	}
	if h.ping != nil {
		h.ping.stop()
	}
	h.log.Info("closed all connections", "count", n)
}
