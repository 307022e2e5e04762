package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapital-dev/kapital/internal/model"
)

// recordingSaver keeps every scheduled snapshot.
type recordingSaver struct {
	mu        sync.Mutex
	snapshots [][]model.Account
}

func (r *recordingSaver) Schedule(accounts []model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, accounts)
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recordingSaver) last() []model.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *recordingSaver) {
	t.Helper()
	saver := &recordingSaver{}
	return NewStore(saver, WithClock(func() time.Time { return fixedNow })), saver
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func income(accountID int, title, amount string, cat model.Category) AddTransactionParams {
	return AddTransactionParams{AccountID: accountID, Title: title, Amount: dec(amount), IsIncome: true, Category: cat, Date: fixedNow}
}

func expense(accountID int, title, amount string, cat model.Category) AddTransactionParams {
	return AddTransactionParams{AccountID: accountID, Title: title, Amount: dec(amount), Category: cat, Date: fixedNow}
}

func TestScenario_CheckingAndSavings(t *testing.T) {
	s, _ := newTestStore(t)

	checking, err := s.AddAccount("Checking")
	require.NoError(t, err)
	assert.Equal(t, 0, checking.ID)

	savings, err := s.AddAccount("Savings")
	require.NoError(t, err)
	assert.Equal(t, 1, savings.ID)

	_, err = s.AddTransaction(income(0, "Salary", "1000", model.CategorySalary))
	require.NoError(t, err)
	assert.Equal(t, "1000.00", s.AccountBalance(0).StringFixed(2))

	groceries, err := s.AddTransaction(expense(0, "Groceries", "50", model.CategoryFood))
	require.NoError(t, err)
	assert.Equal(t, "-50.00", groceries.Signed().StringFixed(2))
	assert.Equal(t, "950.00", s.AccountBalance(0).StringFixed(2))

	require.True(t, s.DeleteTransaction(groceries.ID))
	assert.Equal(t, "1000.00", s.AccountBalance(0).StringFixed(2))
	assert.Equal(t, "1000.00", s.TotalBalance().StringFixed(2))
	assert.True(t, s.AccountBalance(1).IsZero())
}

func TestAddAccount_Validation(t *testing.T) {
	s, saver := newTestStore(t)

	_, err := s.AddAccount("   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, s.Accounts())
	assert.Equal(t, 0, saver.count(), "rejected input must not persist")

	acct, err := s.AddAccount("  Wallet ")
	require.NoError(t, err)
	assert.Equal(t, "Wallet", acct.Name)
	assert.NotNil(t, acct.Transactions)
}

func TestAddTransaction_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddAccount("Checking")
	require.NoError(t, err)

	tests := []struct {
		name  string
		p     AddTransactionParams
		field string
	}{
		{"blank title", income(0, "  ", "10", model.CategorySalary), "title"},
		{"zero amount", income(0, "x", "0", model.CategorySalary), "amount"},
		{"negative amount", expense(0, "x", "-5", model.CategoryFood), "amount"},
		{"sub-cent amount", expense(0, "x", "1.005", model.CategoryFood), "amount"},
		{"unknown category", expense(0, "x", "1", model.Category("PETS")), "category"},
		{"kind mismatch", income(0, "x", "1", model.CategoryFood), "category"},
		{"future date", func() AddTransactionParams {
			p := expense(0, "x", "1", model.CategoryFood)
			p.Date = fixedNow.AddDate(0, 0, 1)
			return p
		}(), "date"},
		{"zero date", func() AddTransactionParams {
			p := expense(0, "x", "1", model.CategoryFood)
			p.Date = time.Time{}
			return p
		}(), "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddTransaction(tt.p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.Has(tt.field), "expected %s error, got %v", tt.field, err)
		})
	}
	assert.Empty(t, s.Transactions())
}

func TestAddTransaction_LaterTodayAccepted(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddAccount("Checking")
	require.NoError(t, err)

	p := expense(0, "Dinner", "30", model.CategoryFood)
	p.Date = time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	_, err = s.AddTransaction(p)
	require.NoError(t, err)
}

func TestAddTransaction_UnknownAccount(t *testing.T) {
	s, saver := newTestStore(t)

	_, err := s.AddTransaction(income(42, "Salary", "1000", model.CategorySalary))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, 0, saver.count())
}

func TestIDsUniqueAcrossAccounts(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.AddAccount("acct")
		require.NoError(t, err)
	}

	seen := make(map[int]bool)
	for i := 0; i < 30; i++ {
		tx, err := s.AddTransaction(expense(i%3, "t", "1", model.CategoryFood))
		require.NoError(t, err)
		assert.False(t, seen[tx.ID], "duplicate transaction id %d", tx.ID)
		seen[tx.ID] = true
		assert.Equal(t, i%3, tx.AccountID)
	}

	accountIDs := make(map[int]bool)
	for _, a := range s.Accounts() {
		assert.False(t, accountIDs[a.ID])
		accountIDs[a.ID] = true
	}
}

func TestIDsNotReusedAfterDelete(t *testing.T) {
	s, _ := newTestStore(t)
	a, err := s.AddAccount("A")
	require.NoError(t, err)
	tx, err := s.AddTransaction(expense(a.ID, "t", "1", model.CategoryFood))
	require.NoError(t, err)

	require.True(t, s.DeleteTransaction(tx.ID))
	require.True(t, s.DeleteAccount(a.ID))

	b, err := s.AddAccount("B")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	tx2, err := s.AddTransaction(expense(b.ID, "t", "1", model.CategoryFood))
	require.NoError(t, err)
	assert.NotEqual(t, tx.ID, tx2.ID)
}

func TestBalances(t *testing.T) {
	s, _ := newTestStore(t)
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.AddAccount(name)
		require.NoError(t, err)
	}
	params := []AddTransactionParams{
		income(0, "pay", "1200.50", model.CategorySalary),
		expense(0, "rent", "700", model.CategoryHousing),
		income(1, "interest", "3.21", model.CategoryInterest),
		expense(2, "bus", "2.40", model.CategoryTransport),
	}
	for _, p := range params {
		_, err := s.AddTransaction(p)
		require.NoError(t, err)
	}

	sum := decimal.Zero
	for _, a := range s.Accounts() {
		want := decimal.Zero
		for _, tx := range a.Transactions {
			want = want.Add(tx.Signed())
		}
		got := s.AccountBalance(a.ID)
		assert.True(t, want.Equal(got), "account %d: want %s got %s", a.ID, want, got)
		sum = sum.Add(got)
	}
	assert.True(t, sum.Equal(s.TotalBalance()))
	assert.Equal(t, "501.31", s.TotalBalance().StringFixed(2))
	assert.True(t, s.AccountBalance(99).IsZero())
}

func TestAddThenDeleteRestoresAccount(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	_, err = s.AddTransaction(income(0, "pay", "10", model.CategorySalary))
	require.NoError(t, err)

	before, _ := s.Account(0)
	balance := s.AccountBalance(0)

	tx, err := s.AddTransaction(expense(0, "coffee", "2.5", model.CategoryFood))
	require.NoError(t, err)
	require.True(t, s.DeleteTransaction(tx.ID))

	after, _ := s.Account(0)
	assert.Len(t, after.Transactions, len(before.Transactions))
	assert.True(t, balance.Equal(s.AccountBalance(0)))
}

func TestDeleteAccountDropsTransactions(t *testing.T) {
	s, saver := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	tx, err := s.AddTransaction(income(0, "pay", "10", model.CategorySalary))
	require.NoError(t, err)

	require.True(t, s.DeleteAccount(0))
	_, ok := s.Transaction(tx.ID)
	assert.False(t, ok)
	assert.Empty(t, saver.last())

	n := saver.count()
	assert.False(t, s.DeleteAccount(0), "second delete is a no-op")
	assert.False(t, s.DeleteTransaction(tx.ID))
	assert.Equal(t, n, saver.count(), "no-ops must not persist")
}

func TestUpdateAccount(t *testing.T) {
	s, saver := newTestStore(t)
	_, err := s.AddAccount("Checking")
	require.NoError(t, err)
	_, err = s.AddTransaction(income(0, "pay", "10", model.CategorySalary))
	require.NoError(t, err)
	n := saver.count()

	acct, _ := s.Account(0)
	acct.Name = "Main"
	ok, err := s.UpdateAccount(acct)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, n+1, saver.count(), "updateAccount persists like every mutator")

	got, _ := s.Account(0)
	assert.Equal(t, "Main", got.Name)
	assert.Len(t, got.Transactions, 1)

	ok, err = s.UpdateAccount(model.Account{ID: 7, Name: "ghost"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UpdateAccount(model.Account{ID: 0, Name: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateAccount_NormalizesTransactions(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	_, err = s.AddAccount("B")
	require.NoError(t, err)
	txB, err := s.AddTransaction(income(1, "pay", "10", model.CategorySalary))
	require.NoError(t, err)

	// Stealing a transaction owned by B is rejected.
	_, err = s.UpdateAccount(model.Account{ID: 0, Name: "A", Transactions: []model.Transaction{{ID: txB.ID}}})
	assert.ErrorIs(t, err, ErrValidation)

	// A new id gets the right back-reference and advances the counter.
	ok, err := s.UpdateAccount(model.Account{ID: 0, Name: "A", Transactions: []model.Transaction{
		{ID: 50, Title: "imported", Amount: dec("5"), Category: model.CategoryFood, Date: fixedNow, AccountID: 9},
	}})
	require.NoError(t, err)
	require.True(t, ok)

	tx, found := s.Transaction(50)
	require.True(t, found)
	assert.Equal(t, 0, tx.AccountID)

	_, nextTx := s.NextIDs()
	assert.Equal(t, 51, nextTx)
}

func TestUpdateAccount_ValidatesTransactions(t *testing.T) {
	s, saver := newTestStore(t)
	_, err := s.AddAccount("Checking")
	require.NoError(t, err)
	_, err = s.AddTransaction(expense(0, "Groceries", "50", model.CategoryFood))
	require.NoError(t, err)
	n := saver.count()

	acct, _ := s.Account(0)
	acct.Transactions[0].Amount = dec("-50")
	acct.Transactions[0].Title = ""
	acct.Transactions[0].Category = "PETS"
	ok, err := s.UpdateAccount(acct)
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, ok)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	for _, f := range []string{"transactions[0].amount", "transactions[0].title", "transactions[0].category"} {
		assert.True(t, verrs.Has(f), "missing %s", f)
	}
	assert.Equal(t, "-50.00", s.AccountBalance(0).StringFixed(2))
	assert.Equal(t, n, saver.count())

	acct, _ = s.Account(0)
	acct.Transactions[0].Date = fixedNow.AddDate(0, 0, 2)
	_, err = s.UpdateAccount(acct)
	assert.ErrorIs(t, err, ErrValidation)

	acct, _ = s.Account(0)
	acct.Transactions[0].IsIncome = true
	_, err = s.UpdateAccount(acct)
	assert.ErrorIs(t, err, ErrValidation, "FOOD is not an income category")
}

func TestUpdateAccount_KeepsUnchangedTransactions(t *testing.T) {
	s, _ := newTestStore(t)
	// A stored transaction dated after the store's clock still loads.
	s.Load([]model.Account{{ID: 0, Name: "A", Transactions: []model.Transaction{
		{ID: 0, Title: "later", Amount: dec("5"), Category: model.CategoryFood, Date: fixedNow.AddDate(0, 1, 0)},
	}}})

	acct, _ := s.Account(0)
	acct.Name = "Renamed"
	ok, err := s.UpdateAccount(acct)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateAccount_RejectsReusedIDs(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	tx, err := s.AddTransaction(expense(0, "coffee", "2.5", model.CategoryFood))
	require.NoError(t, err)
	require.True(t, s.DeleteTransaction(tx.ID))

	reused := model.Transaction{ID: tx.ID, Title: "again", Amount: dec("3"), Category: model.CategoryFood, Date: fixedNow}
	ok, err := s.UpdateAccount(model.Account{ID: 0, Name: "A", Transactions: []model.Transaction{reused}})
	require.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "already issued")
	assert.False(t, ok)

	_, found := s.Transaction(tx.ID)
	assert.False(t, found)
	_, nextTx := s.NextIDs()
	assert.Equal(t, tx.ID+1, nextTx)

	negative := reused
	negative.ID = -1
	_, err = s.UpdateAccount(model.Account{ID: 0, Name: "A", Transactions: []model.Transaction{negative}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLoadNormalizesNegativeAmounts(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load([]model.Account{{ID: 0, Name: "A", Transactions: []model.Transaction{
		{ID: 0, Title: "rent", Amount: dec("-700"), Category: model.CategoryHousing, Date: fixedNow},
		{ID: 1, Title: "pay", Amount: dec("1000"), IsIncome: true, Category: model.CategorySalary, Date: fixedNow},
	}}})

	tx, ok := s.Transaction(0)
	require.True(t, ok)
	assert.Equal(t, "700", tx.Amount.String())
	assert.Equal(t, "300.00", s.AccountBalance(0).StringFixed(2))
}

func TestUpdateTransaction(t *testing.T) {
	s, saver := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	tx, err := s.AddTransaction(expense(0, "Groceries", "50", model.CategoryFood))
	require.NoError(t, err)
	n := saver.count()

	tx.Amount = dec("65.10")
	tx.Title = "Groceries (big shop)"
	ok, err := s.UpdateTransaction(tx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n+1, saver.count())
	assert.Equal(t, "-65.10", s.AccountBalance(0).StringFixed(2))

	// Flipping the kind flips the sign; category must follow.
	tx.IsIncome = true
	_, err = s.UpdateTransaction(tx)
	assert.ErrorIs(t, err, ErrValidation)

	tx.Category = model.CategoryOtherIncome
	ok, err = s.UpdateTransaction(tx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "65.10", s.AccountBalance(0).StringFixed(2))

	missing := tx
	missing.ID = 999
	ok, err = s.UpdateTransaction(missing)
	require.NoError(t, err)
	assert.False(t, ok)

	wrongAccount := tx
	wrongAccount.AccountID = 5
	ok, err = s.UpdateTransaction(wrongAccount)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadReseedsCounters(t *testing.T) {
	s, saver := newTestStore(t)
	s.Load([]model.Account{
		{ID: 3, Name: "A", Transactions: []model.Transaction{
			{ID: 10, Title: "x", Amount: dec("1"), IsIncome: true, Category: model.CategorySalary, Date: fixedNow, AccountID: 3},
		}},
		{ID: 7, Name: "B", Transactions: []model.Transaction{
			{ID: 4, Title: "y", Amount: dec("2"), Category: model.CategoryFood, Date: fixedNow, AccountID: 99},
		}},
	})
	assert.Equal(t, 0, saver.count(), "load must not trigger a save")

	nextAcct, nextTx := s.NextIDs()
	assert.Equal(t, 8, nextAcct)
	assert.Equal(t, 11, nextTx)

	tx, ok := s.Transaction(4)
	require.True(t, ok)
	assert.Equal(t, 7, tx.AccountID, "back-reference normalized")

	a, err := s.AddAccount("C")
	require.NoError(t, err)
	assert.Equal(t, 8, a.ID)
}

func TestLoadEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load(nil)
	nextAcct, nextTx := s.NextIDs()
	assert.Equal(t, 0, nextAcct)
	assert.Equal(t, 0, nextTx)
	assert.NotNil(t, s.Accounts())
}

func TestLoadIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	snapshot := []model.Account{
		{ID: 0, Name: "A", Transactions: []model.Transaction{
			{ID: 2, Title: "x", Amount: dec("1"), IsIncome: true, Category: model.CategorySalary, Date: fixedNow, AccountID: 0},
		}},
	}

	s.Load(snapshot)
	first := s.Accounts()
	a1, t1 := s.NextIDs()

	s.Load(snapshot)
	a2, t2 := s.NextIDs()

	assert.Equal(t, first, s.Accounts())
	assert.Equal(t, a1, a2)
	assert.Equal(t, t1, t2)
}

func TestLoadIf(t *testing.T) {
	s, saver := newTestStore(t)
	_, err := s.AddAccount("mine")
	require.NoError(t, err)
	before := saver.count()

	loaded := s.LoadIf([]model.Account{{ID: 5, Name: "theirs"}}, func() bool { return false })
	assert.False(t, loaded)
	require.Len(t, s.Accounts(), 1)
	assert.Equal(t, "mine", s.Accounts()[0].Name)

	loaded = s.LoadIf([]model.Account{{ID: 5, Name: "theirs"}}, func() bool { return true })
	assert.True(t, loaded)
	assert.Equal(t, "theirs", s.Accounts()[0].Name)
	assert.Equal(t, before, saver.count(), "loading never schedules a save")
}

func TestLoadDoesNotAliasInput(t *testing.T) {
	s, _ := newTestStore(t)
	snapshot := []model.Account{{ID: 0, Name: "A", Transactions: []model.Transaction{{ID: 1, Title: "x"}}}}
	s.Load(snapshot)

	snapshot[0].Name = "changed"
	snapshot[0].Transactions[0].Title = "changed"

	got, _ := s.Account(0)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, "x", got.Transactions[0].Title)
}

func TestLoadNeverRewindsCounters(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.AddAccount("acct")
		require.NoError(t, err)
	}
	s.Load(nil)

	a, err := s.AddAccount("fresh")
	require.NoError(t, err)
	assert.Equal(t, 3, a.ID)
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s, saver := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	_, err = s.AddTransaction(income(0, "pay", "10", model.CategorySalary))
	require.NoError(t, err)

	saved := saver.last()
	require.Len(t, saved[0].Transactions, 1)

	_, err = s.AddTransaction(expense(0, "coffee", "2", model.CategoryFood))
	require.NoError(t, err)
	_, err = s.AddAccount("B")
	require.NoError(t, err)

	assert.Len(t, saved, 1, "earlier snapshot keeps its accounts")
	assert.Len(t, saved[0].Transactions, 1, "earlier snapshot keeps its transactions")
}

func TestAccountsReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	_, err = s.AddTransaction(income(0, "pay", "10", model.CategorySalary))
	require.NoError(t, err)

	accts := s.Accounts()
	accts[0].Name = "changed"
	accts[0].Transactions[0].Amount = dec("1000000")

	assert.Equal(t, "10.00", s.AccountBalance(0).StringFixed(2))
	got, _ := s.Account(0)
	assert.Equal(t, "A", got.Name)
}

func TestSubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	snaps, cancel := s.Subscribe()
	defer cancel()

	initial := <-snaps
	assert.Empty(t, initial.Accounts)

	_, err := s.AddAccount("A")
	require.NoError(t, err)
	_, err = s.AddAccount("B")
	require.NoError(t, err)

	// Only the latest version is buffered.
	latest := <-snaps
	assert.Len(t, latest.Accounts, 2)
	assert.Greater(t, latest.Version, initial.Version)

	select {
	case extra := <-snaps:
		t.Fatalf("unexpected buffered snapshot %d", extra.Version)
	default:
	}
}

func TestSubscribeCancel(t *testing.T) {
	s, _ := newTestStore(t)
	snaps, cancel := s.Subscribe()
	<-snaps
	cancel()
	cancel()

	_, ok := <-snaps
	assert.False(t, ok, "channel closed after cancel")

	_, err := s.AddAccount("A")
	require.NoError(t, err)
}

func TestStoreWithoutSaver(t *testing.T) {
	s := NewStore(nil)
	_, err := s.AddAccount("A")
	require.NoError(t, err)
	assert.True(t, s.DeleteAccount(0))
}
