package amqp

import (
	"encoding/json"
	"time"
)

// Lifecycle actions carried by TransactionEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionEvent is a lightweight lifecycle notification. It carries only
// identity and version; consumers fetch the full transaction from storage.
type TransactionEvent struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(action string, id, userID, version int64) *TransactionEvent {
	return &TransactionEvent{
		Action:    action,
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON parses an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
