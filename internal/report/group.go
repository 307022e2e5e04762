package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kapital-dev/kapital/internal/model"
)

// Group is the share of one category in a set of transactions.
type Group struct {
	Category     model.Category
	Total        decimal.Decimal // signed sum
	Magnitude    decimal.Decimal // sum of absolute values, for charts
	Transactions []model.Transaction
}

// Groups maps each category present in the input to its Group.
type Groups map[model.Category]Group

// GroupByCategory buckets txns by category. Every transaction lands in
// exactly one group, in input order.
func GroupByCategory(txns []model.Transaction) Groups {
	groups := make(Groups)
	for _, t := range txns {
		g, ok := groups[t.Category]
		if !ok {
			g = Group{Category: t.Category, Total: decimal.Zero, Magnitude: decimal.Zero}
		}
		signed := t.Signed()
		g.Total = g.Total.Add(signed)
		g.Magnitude = g.Magnitude.Add(signed.Abs())
		g.Transactions = append(g.Transactions, t)
		groups[t.Category] = g
	}
	return groups
}

// Ordered returns the groups in catalog order; unknown categories sort last by key.
func (g Groups) Ordered() []Group {
	out := make([]Group, 0, len(g))
	for _, grp := range g {
		out = append(out, grp)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].Category.Order(), out[j].Category.Order()
		if oi != oj {
			return oi < oj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// SplitIncomeExpense partitions txns by the sign of their amount. Zero
// amounts go to expense.
func SplitIncomeExpense(txns []model.Transaction) (income, expense []model.Transaction) {
	for _, t := range txns {
		if t.Signed().IsPositive() {
			income = append(income, t)
		} else {
			expense = append(expense, t)
		}
	}
	return income, expense
}

// Summary holds the headline figures of a set of transactions.
type Summary struct {
	Count    int
	Income   decimal.Decimal // sum of positive amounts
	Expenses decimal.Decimal // sum of negative amounts, as a magnitude
	Net      decimal.Decimal
}

// Summarize totals txns.
func Summarize(txns []model.Transaction) Summary {
	s := Summary{Count: len(txns), Income: decimal.Zero, Expenses: decimal.Zero, Net: decimal.Zero}
	income, expense := SplitIncomeExpense(txns)
	for _, t := range income {
		s.Income = s.Income.Add(t.Signed())
	}
	for _, t := range expense {
		s.Expenses = s.Expenses.Add(t.Signed().Abs())
	}
	s.Net = s.Income.Sub(s.Expenses)
	return s
}
