package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:          "kapital",
		Short:        "Personal finance tracker",
		Version:      buildinfo.Summary(),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dir, "dir", defaultDir(), "data directory (env KAPITAL_DIR)")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(),
		newTxCommand(),
		newBalanceCommand(),
		newReportCommand(),
		newCategoriesCommand(),
		newExportCommand(),
		newImportCommand(),
	)
	return rootCmd
}

func defaultDir() string {
	if d := os.Getenv("KAPITAL_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kapital"
	}
	return filepath.Join(home, ".kapital")
}

// dataDir returns the absolute --dir value.
func dataDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}
