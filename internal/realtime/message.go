package realtime

import (
	"encoding/json"
	"time"
)

// Frame types sent outside of domain broadcasts.
const (
	TypeConnected = "connected"
)

// Message is the JSON frame delivered to every connected client.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func encode(msgType string, data any, now time.Time) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: now.UTC(),
	})
}
