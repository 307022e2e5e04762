// Package csvio exports the ledger to CSV files and imports it back.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kapital-dev/kapital/internal/model"
)

// AccountsHeader is the CSV header for accounts.csv.
const AccountsHeader = "account_id,name"

const (
	numAccountFields = 2
	colAccountID     = 0
	colAccountName   = 1
)

// ReadAccounts reads accounts.csv. Transactions are left empty.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numAccountFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(AccountsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numAccountFields)
	row[colAccountID] = strconv.Itoa(acct.ID)
	row[colAccountName] = acct.Name
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numAccountFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numAccountFields, len(record))
	}
	id, err := strconv.Atoi(record[colAccountID])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account_id %q: %w", record[colAccountID], err)
	}
	return model.Account{
		ID:           id,
		Name:         record[colAccountName],
		Transactions: []model.Transaction{},
	}, nil
}
