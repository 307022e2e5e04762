package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kapital-dev/kapital/internal/app"
	"github.com/kapital-dev/kapital/internal/config"
	"github.com/kapital-dev/kapital/internal/logger"
	"github.com/kapital-dev/kapital/internal/report"
)

const closeTimeout = 30 * time.Second

// loadConfig reads <dir>/.env and <dir>/kapital.yaml. The directory must exist.
func loadConfig(dir string) (*config.Config, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("data directory %s does not exist, run 'kapital init' first", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return config.Resolve(dir)
}

// withApp opens the data directory, runs fn, then flushes and closes. When fn
// returns a non-empty message and auto_commit is on, the directory is committed.
func withApp(cmd *cobra.Command, fn func(a *app.App) (commitMsg string, err error)) error {
	dir, err := dataDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	ctx := logger.WithContext(cmd.Context(), log)
	cmd.SetContext(ctx)

	a, err := app.Open(ctx, dir, cfg, log)
	if err != nil {
		return err
	}

	msg, runErr := fn(a)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil || msg == "" {
		return runErr
	}
	if _, err := a.Commit(msg); err != nil {
		log.Warn().Err(err).Msg("auto commit failed")
	}
	return nil
}

// render writes markdown to stdout using the configured style.
func render(cmd *cobra.Command, a *app.App, md string) error {
	out, err := report.Render(md, a.Config.Report.Style)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD in local time or RFC 3339. Empty means now.
func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}
