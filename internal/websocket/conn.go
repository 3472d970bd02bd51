package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is what a Client needs from a socket: framed reads and writes
// with deadlines. Upgraded connections are adapted with WrapConn.
type Connection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	RemoteAddr() string
	Close() error
}

type gorillaConn struct {
	*websocket.Conn
}

func WrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

// RemoteAddr reports the peer as a string so log lines and mocks need no
// net.Addr.
func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
