package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage asks the worker to re-read the live source and mirror it.
// It carries no table data; the worker always fetches the current state.
type RefreshMessage struct {
	Source      string    `json:"source"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshMessage creates a refresh request for source.
func NewRefreshMessage(source, reason string) *RefreshMessage {
	return &RefreshMessage{
		Source:      source,
		Reason:      reason,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes a message body.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
