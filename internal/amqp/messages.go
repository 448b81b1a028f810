package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// TransactionEvent announces a committed ledger write. It carries enough to
// locate the affected owner and period; consumers re-read the store for data.
type TransactionEvent struct {
	Op        Op               `json:"op"`
	ID        string           `json:"id"`
	OwnerID   string           `json:"ownerId"`
	Mode      core.AccountMode `json:"accountMode"`
	Kind      core.Kind        `json:"kind"`
	Year      int              `json:"year"`
	Month     int              `json:"month"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewTransactionEvent stamps the event with the current time.
func NewTransactionEvent(op Op, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Op:        op,
		ID:        tx.ID,
		OwnerID:   tx.OwnerID,
		Mode:      tx.Mode,
		Kind:      tx.Kind,
		Year:      tx.Date.Year(),
		Month:     tx.Date.Month(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and sanity checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, fmt.Errorf("event %q has no owner", msg.ID)
	}
	if msg.Month < 1 || msg.Month > 12 {
		return nil, fmt.Errorf("event %q has invalid month %d", msg.ID, msg.Month)
	}
	if !msg.Mode.IsValid() {
		return nil, fmt.Errorf("event %q has invalid account mode %q", msg.ID, msg.Mode)
	}
	return &msg, nil
}
