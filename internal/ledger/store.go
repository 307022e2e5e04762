package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kapital-dev/kapital/internal/id"
	"github.com/kapital-dev/kapital/internal/model"
)

// Scheduler receives every snapshot produced by a mutation. Implementations
// must not block and must not modify the slice.
type Scheduler interface {
	Schedule(accounts []model.Account)
}

// Snapshot is an immutable view of the ledger at one version.
// Accounts is shared between readers and must not be modified.
type Snapshot struct {
	Version  uint64
	Accounts []model.Account
}

// Store is the authoritative in-memory owner of accounts and transactions.
//
// Every mutation replaces the account slice with a new one instead of
// editing it in place, so snapshots handed to observers and to the
// Scheduler stay valid after later mutations.
type Store struct {
	mu       sync.RWMutex
	accounts []model.Account
	version  uint64

	accountIDs id.Sequence
	txIDs      id.Sequence

	saver Scheduler
	now   func() time.Time
	log   zerolog.Logger

	subs    map[int]chan Snapshot
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to reject future-dated transactions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore creates an empty Store. saver may be nil for a store that never persists.
func NewStore(saver Scheduler, opts ...Option) *Store {
	s := &Store{
		accounts: []model.Account{},
		saver:    saver,
		now:      time.Now,
		log:      zerolog.Nop(),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTransactionParams holds the user supplied fields of a new transaction.
type AddTransactionParams struct {
	AccountID int
	Title     string
	Amount    decimal.Decimal // magnitude, must be > 0
	IsIncome  bool
	Category  model.Category
	Date      time.Time
}

// Load replaces the whole state with accounts, typically a snapshot read back
// from storage. Id counters move past the largest ids seen and never move
// backwards, so repeated loads of the same snapshot are no-ops. Load does not
// schedule a save.
func (s *Store) Load(accounts []model.Account) {
	s.LoadIf(accounts, nil)
}

// LoadIf is Load guarded by cond, which is evaluated under the store lock so
// no mutation can interleave between the check and the load. A nil cond
// always loads. It reports whether the load happened.
func (s *Store) LoadIf(accounts []model.Account, cond func() bool) bool {
	next := model.CloneAccounts(accounts)
	if next == nil {
		next = []model.Account{}
	}

	var accountIDs, txIDs []int
	for i := range next {
		accountIDs = append(accountIDs, next[i].ID)
		if next[i].Transactions == nil {
			next[i].Transactions = []model.Transaction{}
		}
		for j := range next[i].Transactions {
			next[i].Transactions[j].AccountID = next[i].ID
			next[i].Transactions[j].Amount = next[i].Transactions[j].Amount.Abs()
			txIDs = append(txIDs, next[i].Transactions[j].ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cond != nil && !cond() {
		return false
	}

	s.accountIDs.Observe(id.Seed(accountIDs) - 1)
	s.txIDs.Observe(id.Seed(txIDs) - 1)
	s.publish(next, false)

	s.log.Debug().
		Int("accounts", len(next)).
		Int("transactions", len(txIDs)).
		Int("next_account_id", s.accountIDs.Peek()).
		Int("next_transaction_id", s.txIDs.Peek()).
		Msg("ledger loaded")
	return true
}

// AddAccount creates an account named name (trimmed).
func (s *Store) AddAccount(name string) (model.Account, error) {
	if err := ValidateAccountName(name); err != nil {
		return model.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct := model.Account{
		ID:           s.accountIDs.Next(),
		Name:         strings.TrimSpace(name),
		Transactions: []model.Transaction{},
	}
	next := make([]model.Account, len(s.accounts), len(s.accounts)+1)
	copy(next, s.accounts)
	next = append(next, acct)
	s.publish(next, true)

	s.log.Debug().Int("account_id", acct.ID).Str("name", acct.Name).Msg("account added")
	return acct.Clone(), nil
}

// DeleteAccount removes the account and its transactions. It reports whether
// anything was removed.
func (s *Store) DeleteAccount(accountID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(accountID)
	if idx < 0 {
		return false
	}
	next := make([]model.Account, 0, len(s.accounts)-1)
	next = append(next, s.accounts[:idx]...)
	next = append(next, s.accounts[idx+1:]...)
	s.publish(next, true)

	s.log.Debug().Int("account_id", accountID).Msg("account deleted")
	return true
}

// UpdateAccount replaces the account with the same id. Transaction
// back-references are rewritten to the account id. New or changed
// transactions are validated, and ids issued earlier that the account does
// not hold are rejected. It reports false when no such account exists.
func (s *Store) UpdateAccount(updated model.Account) (bool, error) {
	if err := ValidateAccountName(updated.Name); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(updated.ID)
	if idx < 0 {
		return false, nil
	}

	owned := make(map[int]bool)
	for i, a := range s.accounts {
		if i == idx {
			continue
		}
		for _, t := range a.Transactions {
			owned[t.ID] = true
		}
	}

	acct := updated.Clone()
	acct.Name = strings.TrimSpace(acct.Name)
	if acct.Transactions == nil {
		acct.Transactions = []model.Transaction{}
	}

	held := make(map[int]model.Transaction, len(s.accounts[idx].Transactions))
	for _, t := range s.accounts[idx].Transactions {
		held[t.ID] = t
	}

	// Transactions the account already holds unchanged are not re-validated;
	// everything else goes through the same checks as AddTransaction.
	now := s.now()
	var errs ValidationErrors
	seen := make(map[int]bool, len(acct.Transactions))
	for i := range acct.Transactions {
		t := &acct.Transactions[i]
		t.Title = strings.TrimSpace(t.Title)
		t.AccountID = acct.ID
		old, ok := held[t.ID]
		switch {
		case owned[t.ID]:
			errs = append(errs, ValidationError{Field: "transactions", Description: fmt.Sprintf("transaction %d belongs to another account", t.ID)})
		case seen[t.ID]:
			errs = append(errs, ValidationError{Field: "transactions", Description: fmt.Sprintf("duplicate transaction %d", t.ID)})
		case !ok && t.ID < s.txIDs.Peek():
			errs = append(errs, ValidationError{Field: "transactions", Description: fmt.Sprintf("transaction id %d was already issued", t.ID)})
		}
		seen[t.ID] = true
		if ok && sameTransaction(old, *t) {
			continue
		}
		errs = append(errs, validateTransaction(*t, now).prefixed(fmt.Sprintf("transactions[%d].", i))...)
	}
	if err := errs.orNil(); err != nil {
		return false, err
	}
	for txID := range seen {
		s.txIDs.Observe(txID)
	}

	next := make([]model.Account, len(s.accounts))
	copy(next, s.accounts)
	next[idx] = acct
	s.publish(next, true)

	s.log.Debug().Int("account_id", acct.ID).Str("name", acct.Name).Msg("account updated")
	return true, nil
}

// AddTransaction validates p and appends a new transaction to its account.
// It returns ErrAccountNotFound when the account does not exist.
func (s *Store) AddTransaction(p AddTransactionParams) (model.Transaction, error) {
	tx := model.Transaction{
		Title:     strings.TrimSpace(p.Title),
		Amount:    p.Amount,
		IsIncome:  p.IsIncome,
		Category:  p.Category,
		Date:      p.Date,
		AccountID: p.AccountID,
	}
	if err := ValidateTransaction(tx, s.now()); err != nil {
		return model.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(p.AccountID)
	if idx < 0 {
		return model.Transaction{}, fmt.Errorf("account %d: %w", p.AccountID, ErrAccountNotFound)
	}

	tx.ID = s.txIDs.Next()
	next := s.replaceTransactions(idx, func(txns []model.Transaction) []model.Transaction {
		return append(txns, tx)
	})
	s.publish(next, true)

	s.log.Debug().
		Int("account_id", tx.AccountID).
		Int("transaction_id", tx.ID).
		Str("amount", tx.Signed().StringFixed(2)).
		Str("category", string(tx.Category)).
		Msg("transaction added")
	return tx, nil
}

// UpdateTransaction replaces the transaction with the same id inside the
// account named by updated.AccountID. It reports false when either is missing.
func (s *Store) UpdateTransaction(updated model.Transaction) (bool, error) {
	updated.Title = strings.TrimSpace(updated.Title)
	if err := ValidateTransaction(updated, s.now()); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(updated.AccountID)
	if idx < 0 {
		return false, nil
	}
	pos := indexOfTransaction(s.accounts[idx].Transactions, updated.ID)
	if pos < 0 {
		return false, nil
	}

	next := s.replaceTransactions(idx, func(txns []model.Transaction) []model.Transaction {
		txns[pos] = updated
		return txns
	})
	s.publish(next, true)

	s.log.Debug().Int("account_id", updated.AccountID).Int("transaction_id", updated.ID).Msg("transaction updated")
	return true, nil
}

// DeleteTransaction removes the transaction with the given id from whichever
// account holds it. It reports whether anything was removed.
func (s *Store) DeleteTransaction(transactionID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, a := range s.accounts {
		pos := indexOfTransaction(a.Transactions, transactionID)
		if pos < 0 {
			continue
		}
		next := s.replaceTransactions(idx, func(txns []model.Transaction) []model.Transaction {
			return append(txns[:pos], txns[pos+1:]...)
		})
		s.publish(next, true)

		s.log.Debug().Int("account_id", a.ID).Int("transaction_id", transactionID).Msg("transaction deleted")
		return true
	}
	return false
}

// AccountBalance returns the signed sum of the account's transactions, or
// zero when the account does not exist.
func (s *Store) AccountBalance(accountID int) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(accountID)
	if idx < 0 {
		return decimal.Zero
	}
	return s.accounts[idx].Balance()
}

// TotalBalance returns the sum of all account balances.
func (s *Store) TotalBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, a := range s.accounts {
		total = total.Add(a.Balance())
	}
	return total
}

// Accounts returns a copy of all accounts in insertion order.
func (s *Store) Accounts() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneAccounts(s.accounts)
}

// Account returns a copy of the account with the given id.
func (s *Store) Account(accountID int) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(accountID)
	if idx < 0 {
		return model.Account{}, false
	}
	return s.accounts[idx].Clone(), true
}

// Transaction returns the transaction with the given id.
func (s *Store) Transaction(transactionID int) (model.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if pos := indexOfTransaction(a.Transactions, transactionID); pos >= 0 {
			return a.Transactions[pos], true
		}
	}
	return model.Transaction{}, false
}

// Transactions returns every transaction, account by account.
func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Flatten(s.accounts)
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Accounts: s.accounts}
}

// NextIDs returns the ids the next account and transaction will receive.
func (s *Store) NextIDs() (accountID, transactionID int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountIDs.Peek(), s.txIDs.Peek()
}

// Subscribe returns a channel that always holds the most recent snapshot.
// Slow readers skip intermediate versions. cancel closes the channel.
func (s *Store) Subscribe() (snapshots <-chan Snapshot, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- Snapshot{Version: s.version, Accounts: s.accounts}
	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, key)
			close(ch)
		})
	}
}

// Flatten lists the transactions of accounts in account order.
func Flatten(accounts []model.Account) []model.Transaction {
	var out []model.Transaction
	for _, a := range accounts {
		out = append(out, a.Transactions...)
	}
	return out
}

// publish installs next as the current state. Callers hold s.mu.
func (s *Store) publish(next []model.Account, persist bool) {
	s.accounts = next
	s.version++
	snap := Snapshot{Version: s.version, Accounts: next}
	for _, ch := range s.subs {
		offer(ch, snap)
	}
	if persist && s.saver != nil {
		s.saver.Schedule(next)
	}
}

// replaceTransactions copies the account list and the transactions of the
// account at idx, then applies edit to the copied transactions.
func (s *Store) replaceTransactions(idx int, edit func([]model.Transaction) []model.Transaction) []model.Account {
	next := make([]model.Account, len(s.accounts))
	copy(next, s.accounts)

	old := s.accounts[idx].Transactions
	txns := make([]model.Transaction, len(old), len(old)+1)
	copy(txns, old)
	next[idx].Transactions = edit(txns)
	return next
}

func (s *Store) indexOf(accountID int) int {
	for i, a := range s.accounts {
		if a.ID == accountID {
			return i
		}
	}
	return -1
}

func sameTransaction(a, b model.Transaction) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Amount.Equal(b.Amount) &&
		a.IsIncome == b.IsIncome &&
		a.Category == b.Category &&
		a.Date.Equal(b.Date) &&
		a.AccountID == b.AccountID
}

func indexOfTransaction(txns []model.Transaction, transactionID int) int {
	for i, t := range txns {
		if t.ID == transactionID {
			return i
		}
	}
	return -1
}

// offer replaces whatever is buffered in ch with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
