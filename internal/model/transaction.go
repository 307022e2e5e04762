package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single money movement on one account.
//
// Amount holds the unsigned magnitude; IsIncome carries the sign. Use Signed
// for arithmetic. AccountID refers back to the owning account.
type Transaction struct {
	ID        int             `json:"id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	IsIncome  bool            `json:"isIncome"`
	Category  Category        `json:"category"`
	Date      time.Time       `json:"date"`
	AccountID int             `json:"accountId"`
}

// Signed returns the amount with its sign applied: positive for income,
// negative for expenses.
func (t Transaction) Signed() decimal.Decimal {
	if t.IsIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// UnmarshalJSON accepts snapshots that stored a signed amount next to the
// isIncome flag and keeps only the magnitude.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Amount = p.Amount.Abs()
	*t = Transaction(p)
	return nil
}
