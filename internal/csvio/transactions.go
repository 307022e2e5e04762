package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kapital-dev/kapital/internal/model"
)

// TransactionsHeader is the CSV header for transactions.csv.
const TransactionsHeader = "transaction_id,account_id,date,title,amount,kind,category"

const (
	numTxFields   = 7
	colTxID       = 0
	colTxAccount  = 1
	colTxDate     = 2
	colTxTitle    = 3
	colTxAmount   = 4
	colTxKind     = 5
	colTxCategory = 6

	dateOnly = "2006-01-02"
)

// Kind column values.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// ReadTransactions reads transactions.csv.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numTxFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes transactions.csv.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(TransactionsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numTxFields)
	row[colTxID] = strconv.Itoa(t.ID)
	row[colTxAccount] = strconv.Itoa(t.AccountID)
	row[colTxDate] = t.Date.Format(time.RFC3339Nano)
	row[colTxTitle] = t.Title
	row[colTxAmount] = t.Amount.String()
	row[colTxKind] = KindExpense
	if t.IsIncome {
		row[colTxKind] = KindIncome
	}
	row[colTxCategory] = string(t.Category)
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction. Dates may be
// RFC 3339 or a bare YYYY-MM-DD in local time. A signed amount is accepted
// when kind is empty: its sign picks the kind.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numTxFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numTxFields, len(record))
	}

	id, err := strconv.Atoi(record[colTxID])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing transaction_id %q: %w", record[colTxID], err)
	}
	accountID, err := strconv.Atoi(record[colTxAccount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing account_id %q: %w", record[colTxAccount], err)
	}
	date, err := parseDate(record[colTxDate])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(record[colTxAmount]))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colTxAmount], err)
	}

	var income bool
	switch strings.ToLower(strings.TrimSpace(record[colTxKind])) {
	case KindIncome:
		income = true
	case KindExpense:
	case "":
		income = amount.IsPositive()
	default:
		return model.Transaction{}, fmt.Errorf("invalid kind %q, want %s or %s", record[colTxKind], KindIncome, KindExpense)
	}

	category, _ := model.ParseCategory(record[colTxCategory])
	if category == "" {
		category = model.Category(strings.TrimSpace(record[colTxCategory]))
	}

	return model.Transaction{
		ID:        id,
		Title:     record[colTxTitle],
		Amount:    amount.Abs(),
		IsIncome:  income,
		Category:  category,
		Date:      date,
		AccountID: accountID,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: want RFC 3339 or %s", s, dateOnly)
	}
	return t, nil
}
