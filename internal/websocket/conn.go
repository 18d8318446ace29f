package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// WriteEvent sends an enveloped payload over the WebSocket.
func WriteEvent(conn *websocket.Conn, event Event, data interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(Envelope{Event: event, Data: data})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(ErrorResponse{Event: EventError, Error: errMsg})
}

// WriteRaw forwards a pre-encoded JSON payload wrapped as the given event.
// Used by the pub/sub fan-out where the payload is already serialized.
func WriteRaw(conn *websocket.Conn, event Event, raw []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, append(append([]byte(`{"event":"`+string(event)+`","data":`), raw...), '}'))
}
