package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewMessage encodes an action and its payload.
func NewMessage(action string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Action: action, Payload: payload})
}

// NewErrorMessage encodes an "error" action with a human readable message.
func NewErrorMessage(msg string) []byte {
	data, _ := NewMessage("error", map[string]string{"message": msg})
	return data
}
