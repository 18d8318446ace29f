package websocket

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventResult   Event = "result"
	EventPing     Event = "ping"
	EventError    Event = "error"
)

// Envelope wraps every message pushed on the live results stream.
type Envelope struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorResponse is sent before closing a rejected connection.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
