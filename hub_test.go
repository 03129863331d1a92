package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *hub {
	return newHub(hubOptions{sendBuffer: 16}, newMetrics(nil, 0), discardLogger())
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Expectation: condition met within 1s")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := newTestHub()
	sender, _ := newTestConnection(h)
	h.register(sender)
	others := make([]*connection, 4)
	for i := range others {
		others[i], _ = newTestConnection(h)
		h.register(others[i])
	}

	n := h.broadcast(sender, frame{kind: websocket.TextMessage, payload: []byte("monkey")})
	if n != len(others) {
		t.Fatal("Expectation:", len(others), "Received:", n)
	}
	if len(sender.send) != 0 {
		t.Fatal("Expectation: sender queue 0, Received:", len(sender.send))
	}
	for _, c := range others {
		if len(c.send) != 1 {
			t.Fatal("Expectation: 1, Received:", len(c.send))
		}
		if f := <-c.send; string(f.payload) != "monkey" {
			t.Fatal("Expectation: monkey, Received:", string(f.payload))
		}
	}
}

func TestBroadcastNoRecipients(t *testing.T) {
	h := newTestHub()
	sender, _ := newTestConnection(h)
	h.register(sender)

	if n := h.broadcast(sender, frame{kind: websocket.TextMessage, payload: []byte("x")}); n != 0 {
		t.Fatal("Expectation: 0, Received:", n)
	}
}

func TestBroadcastSurvivesFailedRecipient(t *testing.T) {
	h := newTestHub()
	sender, _ := newTestConnection(h)
	first, _ := newTestConnection(h)
	broken, _ := newTestConnection(h)
	last, _ := newTestConnection(h)
	for _, c := range []*connection{sender, first, broken, last} {
		h.register(c)
	}
	broken.close()

	n := h.broadcast(sender, frame{kind: websocket.TextMessage, payload: []byte("banana")})
	if n != 3 {
		t.Fatal("Expectation: 3, Received:", n)
	}
	if len(first.send) != 1 || len(last.send) != 1 {
		t.Fatal("Expectation: live recipients get the frame, Received:", len(first.send), len(last.send))
	}
	// The broken recipient stays registered until its own reader notices.
	if h.reg.len() != 4 {
		t.Fatal("Expectation: 4, Received:", h.reg.len())
	}
}

func TestBroadcastClosesSlowRecipient(t *testing.T) {
	var logs bytes.Buffer
	h := newHub(hubOptions{sendBuffer: 1}, newMetrics(nil, 0), slog.New(slog.NewTextHandler(&logs, nil)))
	sender, _ := newTestConnection(h)
	slow, slowWs := newTestConnection(h)
	fast, _ := newTestConnection(h)
	for _, c := range []*connection{sender, slow, fast} {
		h.register(c)
	}

	h.broadcast(sender, frame{kind: websocket.TextMessage, payload: []byte("1")})
	<-fast.send
	h.broadcast(sender, frame{kind: websocket.TextMessage, payload: []byte("2")})

	if !slow.isClosed() || slowWs.closeCount() != 1 {
		t.Fatal("Expectation: slow recipient closed")
	}
	if f := <-fast.send; string(f.payload) != "2" {
		t.Fatal("Expectation: 2, Received:", string(f.payload))
	}
	if h.reg.len() != 3 {
		t.Fatal("Expectation: 3, Received:", h.reg.len())
	}

	// The warning carries the recipient's own connection attribute.
	var line string
	for _, l := range strings.Split(logs.String(), "\n") {
		if strings.Contains(l, "recipient too slow") {
			line = l
		}
	}
	if !strings.Contains(line, "conn=2") || strings.Count(line, "conn=") != 1 {
		t.Fatal("Expectation: one conn=2 attribute, Received:", line)
	}
}

func TestBroadcastPreservesSenderOrder(t *testing.T) {
	h := newHub(hubOptions{sendBuffer: 128}, newMetrics(nil, 0), discardLogger())
	sender, _ := newTestConnection(h)
	peer, _ := newTestConnection(h)
	h.register(sender)
	h.register(peer)

	for i := 0; i < 100; i++ {
		h.broadcast(sender, frame{kind: websocket.BinaryMessage, payload: []byte{byte(i)}})
	}
	for i := 0; i < 100; i++ {
		if f := <-peer.send; f.payload[0] != byte(i) {
			t.Fatal("Expectation:", i, "Received:", f.payload[0])
		}
	}
}

func TestDispatch(t *testing.T) {
	h := newTestHub()
	sender, _ := newTestConnection(h)
	peer, _ := newTestConnection(h)
	h.register(sender)
	h.register(peer)

	h.dispatch(sender, websocket.TextMessage, []byte("{not json"))
	h.dispatch(sender, websocket.TextMessage, []byte(`{"type":"ping"}`))
	if len(peer.send) != 0 {
		t.Fatal("Expectation: 0, Received:", len(peer.send))
	}
	if h.m.count("malformed") != 1 || h.m.count("ignored") != 1 {
		t.Fatal("Expectation: 1 malformed and 1 ignored, Received:", h.m.count("malformed"), h.m.count("ignored"))
	}

	h.dispatch(sender, websocket.TextMessage, []byte(`{"type":"edit","image_id":"42","data":"payload"}`))
	f := <-peer.send
	want := `{"type":"edit","image_id":"42","data":"payload","editor_id":1}`
	if string(f.payload) != want {
		t.Fatal("Expectation:", want, "Received:", string(f.payload))
	}
}

func TestCloseAll(t *testing.T) {
	h := newTestHub()
	var mocks []*mockWsInteractor
	for i := 0; i < 3; i++ {
		c, ws := newTestConnection(h)
		h.register(c)
		mocks = append(mocks, ws)
	}

	h.closeAll()
	for _, ws := range mocks {
		if ws.closeCount() != 1 {
			t.Fatal("Expectation: 1, Received:", ws.closeCount())
		}
	}
	if !h.isClosing() {
		t.Fatal("Expectation: hub closing after closeAll")
	}
}

func TestRegisterAfterCloseAll(t *testing.T) {
	h := newTestHub()
	h.closeAll()

	// A connection that slips in after shutdown began is closed right away,
	// and its reader then unregisters it as usual.
	c, ws := newTestConnection(h)
	h.register(c)
	if !c.isClosed() || ws.closeCount() != 1 {
		t.Fatal("Expectation: late connection closed, Received:", c.isClosed(), ws.closeCount())
	}
	h.unregister(c)
	if h.reg.len() != 0 {
		t.Fatal("Expectation: 0, Received:", h.reg.len())
	}
}
