package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LedgerChangedMessage announces that the planner document changed. It carries
// no ledger data; consumers load the latest snapshot from the store.
type LedgerChangedMessage struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"`
	Transactions int       `json:"transactions"`
	Currency     string    `json:"currency"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage stamps a fresh message ID and the current time.
func NewLedgerChangedMessage(operation string, transactions int, currency string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ID:           uuid.NewString(),
		Operation:    operation,
		Transactions: transactions,
		Currency:     currency,
		Timestamp:    time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON parses a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
