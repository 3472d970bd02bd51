package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridexport/internal/config"
	"gridexport/pkg/contracts/events"
)

func TestClientConfigFrom(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.WebSocketConfig
		want ClientConfig
	}{
		{
			name: "configured",
			cfg:  config.WebSocketConfig{PingPeriod: 20 * time.Second, PongWait: 30 * time.Second},
			want: ClientConfig{PingPeriod: 20 * time.Second, PongWait: 30 * time.Second},
		},
		{
			name: "ping period longer than pong wait",
			cfg:  config.WebSocketConfig{PingPeriod: time.Minute, PongWait: 10 * time.Second},
			want: ClientConfig{PingPeriod: 9 * time.Second, PongWait: 10 * time.Second},
		},
		{
			name: "defaults",
			cfg:  config.WebSocketConfig{},
			want: ClientConfig{PingPeriod: config.WebSocketPongWait * 9 / 10, PongWait: config.WebSocketPongWait},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientConfigFrom(tt.cfg))
		})
	}
}

func TestClient_WritePump(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := NewMockConnection()
	client := NewClient(hub, conn, "", testClientConfig, nil)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte(`{"type":"export:status"}`)
	client.send <- []byte(`{"type":"export:status","data":{}}`)
	close(client.send)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}

	written := conn.Written()
	require.Len(t, written, 3)
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.Equal(t, websocket.TextMessage, written[1].Type)
	assert.Equal(t, websocket.CloseMessage, written[2].Type)
	assert.True(t, conn.IsClosed())
}

func TestClient_WritePumpStopsOnError(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := NewMockConnection()
	conn.WriteErr = errors.New("broken pipe")
	client := NewClient(hub, conn, "", testClientConfig, nil)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()
	client.send <- []byte("{}")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}
	assert.True(t, conn.IsClosed())
}

func TestClient_ReadPumpUnregistersOnClose(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := NewMockConnection()
	client := NewClient(hub, conn, "", testClientConfig, nil)
	hub.Register(client)
	hello := receive(t, client)
	require.Equal(t, events.MessageTypeConnect, hello.Type)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	conn.AddReadMessage(websocket.TextMessage, heartbeat, nil)
	conn.AddReadMessage(websocket.TextMessage, []byte(`{"type":"hello"}`), nil)
	conn.AddReadMessage(0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read pump did not stop")
	}

	assert.Equal(t, 0, hub.ClientCount())
	assert.True(t, conn.IsClosed())
	assert.Equal(t, int64(maxMessageSize), conn.ReadLimit)
	assert.NotNil(t, conn.PongHandler)
}
