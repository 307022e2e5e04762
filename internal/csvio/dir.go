package csvio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kapital-dev/kapital/internal/ledger"
	"github.com/kapital-dev/kapital/internal/model"
)

// File names used by Export and ReadDir.
const (
	AccountsFile     = "accounts.csv"
	TransactionsFile = "transactions.csv"
)

// Export writes accounts.csv and transactions.csv into dir.
func Export(dir string, accounts []model.Account) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	af, err := os.Create(filepath.Join(dir, AccountsFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", AccountsFile, err)
	}
	defer af.Close()
	if err := WriteAccounts(af, accounts); err != nil {
		return fmt.Errorf("writing %s: %w", AccountsFile, err)
	}

	tf, err := os.Create(filepath.Join(dir, TransactionsFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", TransactionsFile, err)
	}
	defer tf.Close()
	if err := WriteTransactions(tf, ledger.Flatten(accounts)); err != nil {
		return fmt.Errorf("writing %s: %w", TransactionsFile, err)
	}

	if err := af.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", AccountsFile, err)
	}
	return tf.Close()
}

// ReadDir reads an export directory back into accounts with their
// transactions attached. transactions.csv is optional.
func ReadDir(dir string) ([]model.Account, error) {
	af, err := os.Open(filepath.Join(dir, AccountsFile))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", AccountsFile, err)
	}
	defer af.Close()
	accounts, err := ReadAccounts(af)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AccountsFile, err)
	}

	index := make(map[int]int, len(accounts))
	for i, a := range accounts {
		if _, dup := index[a.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate account_id %d", AccountsFile, a.ID)
		}
		index[a.ID] = i
	}

	tf, err := os.Open(filepath.Join(dir, TransactionsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return accounts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", TransactionsFile, err)
	}
	defer tf.Close()
	txns, err := ReadTransactions(tf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TransactionsFile, err)
	}

	for i, t := range txns {
		idx, ok := index[t.AccountID]
		if !ok {
			return nil, fmt.Errorf("%s: row %d: unknown account_id %d", TransactionsFile, i+2, t.AccountID)
		}
		accounts[idx].Transactions = append(accounts[idx].Transactions, t)
	}
	return accounts, nil
}

// Ledger is the part of ledger.Store used by Import.
type Ledger interface {
	AddAccount(name string) (model.Account, error)
	AddTransaction(p ledger.AddTransactionParams) (model.Transaction, error)
}

// ImportResult counts what Import created.
type ImportResult struct {
	Accounts     []model.Account // newly created, without transactions
	Transactions int
}

// Import appends accounts and their transactions to dst as new records with
// fresh ids. Everything is validated first, so on error nothing is added.
func Import(dst Ledger, accounts []model.Account, now time.Time) (ImportResult, error) {
	var errs []error
	for _, a := range accounts {
		if err := ledger.ValidateAccountName(a.Name); err != nil {
			errs = append(errs, fmt.Errorf("account %d: %w", a.ID, err))
		}
		for _, t := range a.Transactions {
			if err := ledger.ValidateTransaction(t, now); err != nil {
				errs = append(errs, fmt.Errorf("transaction %d: %w", t.ID, err))
			}
		}
	}
	if len(errs) > 0 {
		return ImportResult{}, errors.Join(errs...)
	}

	var res ImportResult
	for _, a := range accounts {
		created, err := dst.AddAccount(a.Name)
		if err != nil {
			return res, fmt.Errorf("adding account %q: %w", a.Name, err)
		}
		res.Accounts = append(res.Accounts, created)
		for _, t := range a.Transactions {
			_, err := dst.AddTransaction(ledger.AddTransactionParams{
				AccountID: created.ID,
				Title:     t.Title,
				Amount:    t.Amount,
				IsIncome:  t.IsIncome,
				Category:  t.Category,
				Date:      t.Date,
			})
			if err != nil {
				return res, fmt.Errorf("adding transaction %q: %w", t.Title, err)
			}
			res.Transactions++
		}
	}
	return res, nil
}
