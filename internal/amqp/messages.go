package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/ledger"
)

// LedgerEvent is the wire form of a ledger mutation.
type LedgerEvent struct {
	Kind        ledger.EventKind  `json:"kind"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Goal        *core.Goal        `json:"goal,omitempty"`
	Budget      *decimal.Decimal  `json:"budget,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewLedgerEvent converts a ledger event into its wire form.
func NewLedgerEvent(ev ledger.Event) *LedgerEvent {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEvent{
		Kind:        ev.Kind,
		Transaction: ev.Transaction,
		Goal:        ev.Goal,
		Budget:      ev.Budget,
		Timestamp:   ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
