package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/app"
	"github.com/kapital-dev/kapital/internal/auditlog"
	"github.com/kapital-dev/kapital/internal/ledger"
	"github.com/kapital-dev/kapital/internal/model"
	"github.com/kapital-dev/kapital/internal/report"
)

// txFlags holds the user-editable fields of a transaction.
type txFlags struct {
	title    string
	amount   string
	category string
	date     string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "short description")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 12.50 (the sign is taken from the category)")
	cmd.Flags().StringVar(&f.category, "category", "", "category key, see 'kapital categories'")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d.Abs(), nil
}

func describe(t model.Transaction) string {
	return fmt.Sprintf("%s %s %s", t.Title, report.FormatAmount(t.Signed()), t.Category)
}

func newTxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction", "transactions"},
		Short:   "Manage transactions",
	}
	cmd.AddCommand(newTxAddCommand(), newTxListCommand(), newTxEditCommand(), newTxDeleteCommand())
	return cmd
}

func newTxAddCommand() *cobra.Command {
	var f txFlags
	var accountID int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(f.amount)
			if err != nil {
				return err
			}
			category, err := model.ParseCategory(f.category)
			if err != nil {
				return err
			}
			date, err := parseDate(f.date, time.Now())
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app.App) (string, error) {
				tx, err := a.Store.AddTransaction(ledger.AddTransactionParams{
					AccountID: accountID,
					Title:     f.title,
					Amount:    amount,
					IsIncome:  category.IsIncome(),
					Category:  category,
					Date:      date,
				})
				if err != nil {
					return "", err
				}
				a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionTransactionAdded, tx.AccountID, tx.ID, describe(tx)))
				fmt.Fprintf(cmd.OutOrStdout(), "Added transaction %d: %s\n", tx.ID, describe(tx))
				return fmt.Sprintf("tx: add %d", tx.ID), nil
			})
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&accountID, "account", 0, "account id")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newTxListCommand() *cobra.Command {
	var accountID int
	var window string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := report.ParseWindow(window)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) (string, error) {
				txns, err := selectTransactions(a, accountID)
				if err != nil {
					return "", err
				}
				return "", render(cmd, a, report.TransactionsMarkdown(report.FilterByWindow(txns, w, time.Now())))
			})
		},
	}

	cmd.Flags().IntVar(&accountID, "account", -1, "only this account")
	cmd.Flags().StringVar(&window, "window", "all", "day, week, month, year or all")
	return cmd
}

// selectTransactions returns every transaction, or one account's when accountID >= 0.
func selectTransactions(a *app.App, accountID int) ([]model.Transaction, error) {
	if accountID < 0 {
		return a.Store.Transactions(), nil
	}
	acct, ok := a.Store.Account(accountID)
	if !ok {
		return nil, fmt.Errorf("account %d not found", accountID)
	}
	return acct.Transactions, nil
}

func newTxEditCommand() *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) (string, error) {
				tx, ok := a.Store.Transaction(id)
				if !ok {
					return "", fmt.Errorf("transaction %d not found", id)
				}
				if err := applyTxFlags(cmd, &f, &tx); err != nil {
					return "", err
				}
				found, err := a.Store.UpdateTransaction(tx)
				if err != nil {
					return "", err
				}
				if !found {
					return "", fmt.Errorf("transaction %d not found", id)
				}
				a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionTransactionUpdated, tx.AccountID, tx.ID, describe(tx)))
				fmt.Fprintf(cmd.OutOrStdout(), "Updated transaction %d: %s\n", tx.ID, describe(tx))
				return fmt.Sprintf("tx: edit %d", tx.ID), nil
			})
		},
	}

	f.register(cmd)
	return cmd
}

// applyTxFlags copies the flags the user set onto tx.
func applyTxFlags(cmd *cobra.Command, f *txFlags, tx *model.Transaction) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		tx.Title = f.title
	}
	if flags.Changed("amount") {
		amount, err := parseAmount(f.amount)
		if err != nil {
			return err
		}
		tx.Amount = amount
	}
	if flags.Changed("category") {
		category, err := model.ParseCategory(f.category)
		if err != nil {
			return err
		}
		tx.Category = category
		tx.IsIncome = category.IsIncome()
	}
	if flags.Changed("date") {
		date, err := parseDate(f.date, time.Now())
		if err != nil {
			return err
		}
		tx.Date = date
	}
	return nil
}

func newTxDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) (string, error) {
				tx, ok := a.Store.Transaction(id)
				if !ok || !a.Store.DeleteTransaction(id) {
					return "", fmt.Errorf("transaction %d not found", id)
				}
				a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionTransactionDeleted, tx.AccountID, tx.ID, describe(tx)))
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %d\n", id)
				return fmt.Sprintf("tx: delete %d", id), nil
			})
		},
	}
}
