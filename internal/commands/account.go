package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/app"
	"github.com/kapital-dev/kapital/internal/auditlog"
	"github.com/kapital-dev/kapital/internal/report"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts"},
		Short:   "Manage accounts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add NAME",
			Short: "Create an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(a *app.App) (string, error) {
					acct, err := a.Store.AddAccount(args[0])
					if err != nil {
						return "", err
					}
					a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionAccountAdded, acct.ID, auditlog.NoID, acct.Name))
					fmt.Fprintf(cmd.OutOrStdout(), "Added account %d %q\n", acct.ID, acct.Name)
					return fmt.Sprintf("account: add %q", acct.Name), nil
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List accounts with their balances",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(a *app.App) (string, error) {
					return "", render(cmd, a, report.BalancesMarkdown(a.Store.Accounts()))
				})
			},
		},
		&cobra.Command{
			Use:   "rename ID NAME",
			Short: "Rename an account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "account")
				if err != nil {
					return err
				}
				return withApp(cmd, func(a *app.App) (string, error) {
					acct, ok := a.Store.Account(id)
					if !ok {
						return "", fmt.Errorf("account %d not found", id)
					}
					old := acct.Name
					acct.Name = args[1]
					if _, err := a.Store.UpdateAccount(acct); err != nil {
						return "", err
					}
					acct, _ = a.Store.Account(id)
					a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionAccountRenamed, id, auditlog.NoID, fmt.Sprintf("%s -> %s", old, acct.Name)))
					fmt.Fprintf(cmd.OutOrStdout(), "Renamed account %d to %q\n", id, acct.Name)
					return fmt.Sprintf("account: rename %d", id), nil
				})
			},
		},
		&cobra.Command{
			Use:     "delete ID",
			Aliases: []string{"rm"},
			Short:   "Delete an account and all its transactions",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "account")
				if err != nil {
					return err
				}
				return withApp(cmd, func(a *app.App) (string, error) {
					acct, ok := a.Store.Account(id)
					if !ok || !a.Store.DeleteAccount(id) {
						return "", fmt.Errorf("account %d not found", id)
					}
					a.Audit(auditlog.NewEntry(time.Now(), auditlog.ActionAccountDeleted, id, auditlog.NoID,
						fmt.Sprintf("%s (%d transactions)", acct.Name, len(acct.Transactions))))
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %d %q\n", id, acct.Name)
					return fmt.Sprintf("account: delete %d", id), nil
				})
			},
		},
	)
	return cmd
}
