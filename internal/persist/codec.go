// Package persist moves ledger snapshots in and out of a kv.Store.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kapital-dev/kapital/internal/model"
)

// Encode serializes accounts as a JSON array. An empty ledger is "[]" and
// accounts without transactions carry an empty array.
func Encode(accounts []model.Account) ([]byte, error) {
	out := make([]model.Account, len(accounts))
	for i, a := range accounts {
		if a.Transactions == nil {
			a.Transactions = []model.Transaction{}
		}
		out[i] = a
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding accounts: %w", err)
	}
	return data, nil
}

// Decode parses a blob written by Encode. A blank blob is an empty ledger.
// Legacy signed amounts are normalized by model.Transaction.
func Decode(data []byte) ([]model.Account, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []model.Account{}, nil
	}
	var accounts []model.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	for i := range accounts {
		if accounts[i].Transactions == nil {
			accounts[i].Transactions = []model.Transaction{}
		}
	}
	return accounts, nil
}
