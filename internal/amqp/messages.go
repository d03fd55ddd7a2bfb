package amqp

import (
	"encoding/json"
	"time"
)

// RowsAppendedMessage tells the sync worker that new rows were journaled.
// It carries only a count; the worker reads the rows from the journal.
type RowsAppendedMessage struct {
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRowsAppendedMessage(rows int) *RowsAppendedMessage {
	return &RowsAppendedMessage{
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

func (m *RowsAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RowsAppendedMessageFromJSON(data []byte) (*RowsAppendedMessage, error) {
	var msg RowsAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
