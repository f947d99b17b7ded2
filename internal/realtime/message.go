package realtime

import "github.com/goccy/go-json"

// Socket message types recognised outside the event catalogue.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is the socket envelope in both directions.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

var pongFrame = mustEncode(Message{Type: MessageTypePong})

func encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func mustEncode(msg Message) []byte {
	frame, err := encode(msg)
	if err != nil {
		panic(err)
	}
	return frame
}
