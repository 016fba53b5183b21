package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseCreatedMessage is the lightweight message enqueued when an expense is
// created. It carries only identifiers; the worker loads the full row from
// the database before exporting.
type ExpenseCreatedMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseCreatedMessage creates a message for a freshly inserted expense.
func NewExpenseCreatedMessage(id, userID, version int64) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON creates a message from JSON bytes
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
