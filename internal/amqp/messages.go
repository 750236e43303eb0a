package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryKind names the ledger table a recorded entry belongs to.
type EntryKind string

const (
	KindCustomer EntryKind = "customer"
	KindPayment  EntryKind = "payment"
	KindCashSale EntryKind = "cash_sale"
)

func (k EntryKind) IsValid() bool {
	switch k {
	case KindCustomer, KindPayment, KindCashSale:
		return true
	default:
		return false
	}
}

// EntryRecordedMessage announces a new ledger entry. It carries only the
// kind and id; the consumer loads the record from the database.
type EntryRecordedMessage struct {
	Kind      EntryKind `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryRecordedMessage(kind EntryKind, id int64) *EntryRecordedMessage {
	return &EntryRecordedMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryRecordedMessageFromJSON decodes and checks a message body.
func EntryRecordedMessageFromJSON(data []byte) (*EntryRecordedMessage, error) {
	var msg EntryRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.IsValid() {
		return nil, fmt.Errorf("unknown entry kind %q", msg.Kind)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid entry id %d", msg.ID)
	}
	return &msg, nil
}
