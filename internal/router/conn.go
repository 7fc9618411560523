package router

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const closeWriteWait = time.Second

// wsConn adapts a gorilla websocket connection to the registry's Conn
// interface. Writes are serialized because gorilla connections allow
// only one concurrent writer.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.NewString(), conn: conn}
}

func (w *wsConn) ID() string {
	return w.id
}

func (w *wsConn) Send(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// Close tears down the connection. A non-empty reason is sent in a
// close frame first so the peer learns why it was dropped.
func (w *wsConn) Close(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if reason != "" {
		frame := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = w.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(closeWriteWait))
	}
	return w.conn.Close()
}
