package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event actions and entities carried on the mirror queue.
const (
	EntityExpense = "expense"
	EntityIncome  = "income"
	EntityOrder   = "order"

	ActionUpsert = "upsert"
	ActionDelete = "delete"
	ActionSettle = "settle"
)

// LedgerEventMessage is a lightweight notification that a ledger row changed.
// It carries only the entity kind, action and id; the worker fetches the
// full row from the local database before mirroring it.
type LedgerEventMessage struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(entity, action string, id int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Entity:    entity,
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
