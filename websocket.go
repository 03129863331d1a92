package main

import (
	"time"

	"github.com/gorilla/websocket"
)

// websocketManager is the part of *websocket.Conn a connection uses. Tests
// substitute a mock.
type websocketManager interface {
	wsSetReadLimit(limit int64)
	wsSetReadDeadline(wait time.Duration)
	wsSetPongHandler(wait time.Duration)
	wsReadMessage() (int, []byte, error)
	wsSetWriteDeadline(wait time.Duration)
	wsWriteMessage(int, []byte) error
	wsClose() error
}

type websocketInteractor struct {
	ws *websocket.Conn
}

func (w websocketInteractor) wsSetReadLimit(limit int64) {
	if limit > 0 {
		w.ws.SetReadLimit(limit)
	}
}

// wsSetReadDeadline sets the read deadline wait from now. A zero wait
// clears it.
func (w websocketInteractor) wsSetReadDeadline(wait time.Duration) {
	w.ws.SetReadDeadline(deadline(wait))
}

func (w websocketInteractor) wsSetPongHandler(wait time.Duration) {
	w.ws.SetPongHandler(func(string) error { w.wsSetReadDeadline(wait); return nil })
}

func (w websocketInteractor) wsClose() error {
	return w.ws.Close()
}

func (w websocketInteractor) wsReadMessage() (messageType int, p []byte, err error) {
	return w.ws.ReadMessage()
}

func (w websocketInteractor) wsSetWriteDeadline(wait time.Duration) {
	w.ws.SetWriteDeadline(deadline(wait))
}

func (w websocketInteractor) wsWriteMessage(messageType int, payload []byte) error {
	return w.ws.WriteMessage(messageType, payload)
}

func deadline(wait time.Duration) time.Time {
	if wait <= 0 {
		return time.Time{}
	}
	return time.Now().Add(wait)
}
