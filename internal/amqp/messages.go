package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExportRequestMessage asks the worker to build and export the report for
// one range. The request ID doubles as the idempotency key of the run.
type ExportRequestMessage struct {
	RequestID   string    `json:"request_id"`
	Range       string    `json:"range"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewExportRequestMessage creates a request with a fresh ID.
func NewExportRequestMessage(rangeName string) *ExportRequestMessage {
	return &ExportRequestMessage{
		RequestID:   uuid.NewString(),
		Range:       rangeName,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes and checks a message body.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RequestID == "" {
		return nil, errors.New("export request without request_id")
	}
	if msg.Range == "" {
		return nil, errors.New("export request without range")
	}
	return &msg, nil
}
