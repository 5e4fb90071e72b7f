package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

// DefaultKey is the store key the snapshot is written under.
const DefaultKey = "financialData"

// Data is the persisted form of the ledger. It is written whole on every
// mutation.
type Data struct {
	Transactions  []core.Transaction                     `json:"transactions"`
	Goals         []core.Goal                            `json:"goals"`
	Categories    map[core.CategoryKey]core.CategoryInfo `json:"categories"`
	MonthlyBudget decimal.Decimal                        `json:"monthlyBudget"`
	Currency      string                                 `json:"currency"`
}

// DefaultData is the state used when nothing usable is stored.
func DefaultData() Data {
	return Data{
		Transactions:  []core.Transaction{},
		Goals:         []core.Goal{},
		Categories:    core.CategoryTable(),
		MonthlyBudget: decimal.NewFromInt(2000),
		Currency:      "USD",
	}
}

// Decode merges a stored snapshot over DefaultData. Records that fail
// validation are dropped and the category table is always the static one.
// The second result is the number of dropped records.
func Decode(raw []byte) (Data, int, error) {
	d := DefaultData()
	if err := json.Unmarshal(raw, &d); err != nil {
		return DefaultData(), 0, err
	}
	return sanitize(d)
}

func sanitize(d Data) (Data, int, error) {
	dropped := 0

	txs := make([]core.Transaction, 0, len(d.Transactions))
	for _, tx := range d.Transactions {
		tx.Category = tx.Category.Normalize()
		if tx.Validate() != nil {
			dropped++
			continue
		}
		txs = append(txs, tx)
	}

	goals := make([]core.Goal, 0, len(d.Goals))
	for _, g := range d.Goals {
		if g.Validate() != nil {
			dropped++
			continue
		}
		g.Completed = g.IsCompleted()
		goals = append(goals, g)
	}

	def := DefaultData()
	d.Transactions = txs
	d.Goals = goals
	d.Categories = def.Categories
	if !d.MonthlyBudget.IsPositive() {
		d.MonthlyBudget = def.MonthlyBudget
	}
	if d.Currency == "" {
		d.Currency = def.Currency
	}
	return d, dropped, nil
}

// Encode serialises d for the store.
func Encode(d Data) ([]byte, error) {
	return json.Marshal(d)
}
