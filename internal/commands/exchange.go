package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/app"
	"github.com/kapital-dev/kapital/internal/auditlog"
	"github.com/kapital-dev/kapital/internal/csvio"
)

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export DIR",
		Short: "Write accounts.csv and transactions.csv into DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return withApp(cmd, func(a *app.App) (string, error) {
				accounts := a.Store.Accounts()
				if err := csvio.Export(out, accounts); err != nil {
					return "", err
				}
				details := fmt.Sprintf("%d accounts to %s", len(accounts), out)
				a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionExport, auditlog.NoID, auditlog.NoID, details))
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", details)
				return "", nil
			})
		},
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import DIR",
		Short: "Append the accounts and transactions exported in DIR",
		Long: "Reads accounts.csv and, if present, transactions.csv from DIR and adds them\n" +
			"as new accounts with fresh ids. Nothing is added if any row is invalid.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := csvio.ReadDir(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) (string, error) {
				res, err := csvio.Import(a.Store, accounts, time.Now())
				if err != nil {
					return "", err
				}
				details := fmt.Sprintf("%d accounts, %d transactions", len(res.Accounts), res.Transactions)
				a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionImport, auditlog.NoID, auditlog.NoID, details))
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", details)
				return "import: " + details, nil
			})
		},
	}
}
