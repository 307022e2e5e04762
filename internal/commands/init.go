package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/auditlog"
	"github.com/kapital-dev/kapital/internal/config"
	"github.com/kapital-dev/kapital/internal/gitops"
	"github.com/kapital-dev/kapital/internal/kv"
	"github.com/kapital-dev/kapital/internal/persist"
)

func newInitCommand() *cobra.Command {
	var backend string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}
			return runInit(cmd, dir, backend, useGit)
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "file", "storage backend (file or sqlite)")
	cmd.Flags().BoolVar(&useGit, "git", false, "version the data directory with git and commit after every change")

	return cmd
}

func runInit(cmd *cobra.Command, dir, backend string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfg := config.Default()
	cfg.Storage.Backend = backend
	cfg.Git.AutoCommit = useGit
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write an empty ledger so the storage location exists from the start.
	store, err := kv.Open(cfg.Storage.Backend, cfg.StoragePath(dir))
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	saveErr := persist.NewAdapter(store, persist.DefaultKey, zerolog.Nop()).Save(context.Background(), nil)
	if err := store.Close(); err != nil && saveErr == nil {
		saveErr = err
	}
	if saveErr != nil {
		return fmt.Errorf("writing empty ledger: %w", saveErr)
	}

	if err := auditlog.Append(dir, auditlog.NewEntry(time.Now(), auditlog.ActionInit, auditlog.NoID, auditlog.NoID, "backend="+backend)); err != nil {
		return err
	}

	hash := ""
	if useGit {
		if err := gitops.Init(dir); err != nil {
			return err
		}
		hash, err = gitops.CommitAll(dir, "init: Initialize kapital", gitops.Author{
			Name:  cfg.Git.AuthorName,
			Email: cfg.Git.AuthorEmail,
		})
		if err != nil {
			return fmt.Errorf("initial commit: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if hash != "" {
		fmt.Fprintf(out, "Initialized kapital at %s (%s)\n", dir, hash)
	} else {
		fmt.Fprintf(out, "Initialized kapital at %s\n", dir)
	}
	return nil
}
