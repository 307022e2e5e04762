// Package app wires storage, persistence and the ledger store into one session.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kapital-dev/kapital/internal/auditlog"
	"github.com/kapital-dev/kapital/internal/config"
	"github.com/kapital-dev/kapital/internal/gitops"
	"github.com/kapital-dev/kapital/internal/kv"
	"github.com/kapital-dev/kapital/internal/ledger"
	"github.com/kapital-dev/kapital/internal/model"
	"github.com/kapital-dev/kapital/internal/persist"
)

// App is an open data directory.
type App struct {
	Dir    string
	Config *config.Config
	Store  *ledger.Store

	log     zerolog.Logger
	kv      kv.Store
	adapter *persist.Adapter
	saver   *persist.Saver

	cancel context.CancelFunc
	group  *errgroup.Group
	closed bool
}

// Open loads the ledger stored in dir and starts the background saver and
// storage watcher. Close must be called to flush pending saves.
func Open(ctx context.Context, dir string, cfg *config.Config, log zerolog.Logger, opts ...ledger.Option) (*App, error) {
	store, err := kv.Open(cfg.Storage.Backend, cfg.StoragePath(dir))
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	adapter := persist.NewAdapter(store, persist.DefaultKey, log)
	saver := persist.NewSaver(adapter, persist.RetryConfig{
		MaxAttempts:    cfg.Persistence.MaxAttempts,
		InitialBackoff: cfg.Persistence.InitialBackoff,
		MaxBackoff:     cfg.Persistence.MaxBackoff,
	}, log)

	accounts, err := adapter.Load(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}

	opts = append([]ledger.Option{ledger.WithLogger(log)}, opts...)
	a := &App{
		Dir:     dir,
		Config:  cfg,
		Store:   ledger.NewStore(saver, opts...),
		log:     log,
		kv:      store,
		adapter: adapter,
		saver:   saver,
	}
	a.Store.Load(accounts)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return saver.Run(gctx) })
	g.Go(func() error { return a.watch(gctx) })
	a.cancel, a.group = cancel, g

	log.Debug().
		Str("dir", dir).
		Str("backend", cfg.Storage.Backend).
		Int("accounts", len(accounts)).
		Msg("ledger opened")
	return a, nil
}

// watch applies stored snapshots to the store. The snapshot read by Open is
// skipped; later ones go through current.
func (a *App) watch(ctx context.Context) error {
	applied := a.adapter.Generation()
	for st := range a.adapter.WatchStored(ctx) {
		if st.Generation <= applied {
			continue
		}
		if a.Store.LoadIf(st.Accounts, func() bool { return a.current(st) }) {
			applied = st.Generation
		} else {
			a.log.Debug().Uint64("generation", st.Generation).Msg("stored snapshot skipped, superseded")
		}
	}
	return nil
}

// current reports whether st may replace the in-memory state: it must be the
// latest stored generation, and every mutation must have reached storage.
// After a dropped save the store holds changes storage lacks, so older
// content is not applied over them.
func (a *App) current(st persist.Stored) bool {
	return a.saver.Saved() && a.adapter.Generation() == st.Generation
}

// Flush waits for every mutation made so far to reach storage.
func (a *App) Flush(ctx context.Context) error {
	return a.saver.Flush(ctx)
}

// Close flushes pending saves, stops background work and closes storage.
func (a *App) Close(ctx context.Context) error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if err := a.saver.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing saves: %w", err))
	} else if err := a.saver.Err(); err != nil {
		errs = append(errs, fmt.Errorf("latest changes were not saved: %w", err))
	}
	a.cancel()
	if err := a.group.Wait(); err != nil {
		errs = append(errs, err)
	}
	if err := a.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}
	return errors.Join(errs...)
}

// Audit appends entries to the audit log. Failures are logged, not returned.
func (a *App) Audit(entries ...auditlog.Entry) {
	if err := auditlog.Append(a.Dir, entries...); err != nil {
		a.log.Warn().Err(err).Msg("writing audit log")
	}
}

// Commit records the data directory in git when auto_commit is enabled and
// the directory is a repository. It returns the new short hash, or "" when
// nothing was committed.
func (a *App) Commit(message string) (string, error) {
	if !a.Config.Git.AutoCommit || !gitops.IsRepo(a.Dir) {
		return "", nil
	}
	hash, err := gitops.CommitIfChanged(a.Dir, message, gitops.Author{
		Name:  a.Config.Git.AuthorName,
		Email: a.Config.Git.AuthorEmail,
	})
	if err != nil {
		return "", fmt.Errorf("committing data dir: %w", err)
	}
	if hash != "" {
		a.log.Debug().Str("hash", hash).Msg("data dir committed")
	}
	return hash, nil
}

// Snapshot returns the stored ledger, bypassing the in-memory store.
func (a *App) Snapshot(ctx context.Context) ([]model.Account, error) {
	return a.adapter.Load(ctx)
}
