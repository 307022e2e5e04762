package model

import "github.com/shopspring/decimal"

// Account is a named bucket of transactions. Its balance is always derived.
type Account struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Transactions []Transaction `json:"transactions"`
}

// Balance returns the signed sum of the account's transactions.
func (a Account) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, t := range a.Transactions {
		total = total.Add(t.Signed())
	}
	return total
}

// Clone returns a copy of the account that shares no slice memory with a.
func (a Account) Clone() Account {
	if a.Transactions != nil {
		txns := make([]Transaction, len(a.Transactions))
		copy(txns, a.Transactions)
		a.Transactions = txns
	}
	return a
}

// CloneAccounts deep-copies a list of accounts.
func CloneAccounts(accounts []Account) []Account {
	if accounts == nil {
		return nil
	}
	out := make([]Account, len(accounts))
	for i, a := range accounts {
		out[i] = a.Clone()
	}
	return out
}
