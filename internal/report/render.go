package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/kapital-dev/kapital/internal/model"
)

// StylePlain skips terminal rendering and returns raw markdown.
const StylePlain = "plain"

// Report is the aggregate view of one window.
type Report struct {
	Window       Window
	Ref          time.Time
	Summary      Summary
	Groups       []Group
	Transactions []model.Transaction
}

// Build filters txns to window w around ref and aggregates the result.
func Build(txns []model.Transaction, w Window, ref time.Time) Report {
	filtered := FilterByWindow(txns, w, ref)
	return Report{
		Window:       w,
		Ref:          ref,
		Summary:      Summarize(filtered),
		Groups:       GroupByCategory(filtered).Ordered(),
		Transactions: filtered,
	}
}

// CategoryMarkdown renders the per-category breakdown.
func (r Report) CategoryMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## By category (%s)\n\n", r.Window)
	if len(r.Groups) == 0 {
		b.WriteString("No transactions.\n")
		return b.String()
	}
	b.WriteString("| Category | Kind | Count | Total |\n|---|---|---:|---:|\n")
	for _, g := range r.Groups {
		kind := "expense"
		if g.Category.IsIncome() {
			kind = "income"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", escape(g.Category.DisplayName()), kind, len(g.Transactions), FormatAmount(g.Total))
	}
	return b.String()
}

// KindMarkdown renders income against expenses.
func (r Report) KindMarkdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Income vs expenses (%s)\n\n", r.Window)
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Income | %s |\n", FormatAmount(r.Summary.Income))
	fmt.Fprintf(&b, "| Expenses | %s |\n", FormatAmount(r.Summary.Expenses))
	fmt.Fprintf(&b, "| **Net** | **%s** |\n", FormatAmount(r.Summary.Net))
	return b.String()
}

// BalancesMarkdown renders one row per account plus the total.
func BalancesMarkdown(accounts []model.Account) string {
	var b strings.Builder
	b.WriteString("| ID | Account | Transactions | Balance |\n|---:|---|---:|---:|\n")
	total := decimal.Zero
	for _, a := range accounts {
		bal := a.Balance()
		total = total.Add(bal)
		fmt.Fprintf(&b, "| %d | %s | %d | %s |\n", a.ID, escape(a.Name), len(a.Transactions), FormatAmount(bal))
	}
	fmt.Fprintf(&b, "| | **Total** | | **%s** |\n", FormatAmount(total))
	return b.String()
}

// TransactionsMarkdown renders a transaction list.
func TransactionsMarkdown(txns []model.Transaction) string {
	if len(txns) == 0 {
		return "No transactions.\n"
	}
	var b strings.Builder
	b.WriteString("| ID | Date | Account | Title | Category | Amount |\n|---:|---|---:|---|---|---:|\n")
	for _, t := range txns {
		fmt.Fprintf(&b, "| %d | %s | %d | %s | %s | %s |\n",
			t.ID, t.Date.Format("02/01/2006"), t.AccountID, escape(t.Title), escape(t.Category.DisplayName()), FormatAmount(t.Signed()))
	}
	return b.String()
}

// Render turns markdown into terminal output using a glamour standard style
// ("dark", "light", "notty", "ascii", ...). StylePlain returns md unchanged.
func Render(md, style string) (string, error) {
	if style == StylePlain || style == "" {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
