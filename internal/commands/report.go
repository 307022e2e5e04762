package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/app"
	"github.com/kapital-dev/kapital/internal/config"
	"github.com/kapital-dev/kapital/internal/model"
	"github.com/kapital-dev/kapital/internal/report"
)

func newBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show account balances and the total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) (string, error) {
				return "", render(cmd, a, report.BalancesMarkdown(a.Store.Accounts()))
			})
		},
	}
}

func newReportCommand() *cobra.Command {
	var window, by string
	var accountID int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Break down transactions by category or by income and expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := report.ParseWindow(window)
			if err != nil {
				return err
			}
			if by != "category" && by != "kind" {
				return fmt.Errorf("invalid --by %q, want category or kind", by)
			}

			return withApp(cmd, func(a *app.App) (string, error) {
				txns, err := selectTransactions(a, accountID)
				if err != nil {
					return "", err
				}
				r := report.Build(txns, w, time.Now())

				var b strings.Builder
				fmt.Fprintf(&b, "# Report: %s\n\n", period(w, r.Ref))
				fmt.Fprintf(&b, "%d transactions, net **%s**\n\n", r.Summary.Count, report.FormatAmount(r.Summary.Net))
				if by == "kind" {
					b.WriteString(r.KindMarkdown())
				} else {
					b.WriteString(r.CategoryMarkdown())
				}
				return "", render(cmd, a, b.String())
			})
		},
	}

	cmd.Flags().StringVar(&window, "window", "month", "day, week, month, year or all")
	cmd.Flags().StringVar(&by, "by", "category", "category or kind")
	cmd.Flags().IntVar(&accountID, "account", -1, "only this account")
	return cmd
}

// period names the calendar period of w around ref.
func period(w report.Window, ref time.Time) string {
	switch w {
	case report.Day:
		return ref.Format("02/01/2006")
	case report.Week:
		y, wk := ref.ISOWeek()
		return fmt.Sprintf("week %d of %d", wk, y)
	case report.Month:
		return ref.Format("January 2006")
	case report.Year:
		return ref.Format("2006")
	default:
		return "all time"
	}
}

func newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the transaction categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var b strings.Builder
			b.WriteString("| Key | Name | Kind | Color |\n|---|---|---|---|\n")
			for _, c := range model.Categories() {
				kind := "expense"
				if c.Income {
					kind = "income"
				}
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", c.Key, c.DisplayName, kind, c.Color)
			}
			// Works without a data directory, so only the environment picks the style.
			style := os.Getenv("KAPITAL_REPORT_STYLE")
			if style == "" {
				style = config.Default().Report.Style
			}
			out, err := report.Render(b.String(), style)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}
