// Package gitops versions a data directory with the git binary.
package gitops

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Author identifies who commits snapshots of the data directory.
type Author struct {
	Name  string
	Email string
}

// ignored keeps interrupted atomic writes out of history.
const ignored = ".*.tmp\n"

// Init initializes a new git repository at dir with a .gitignore for temp files.
func Init(dir string) error {
	if out, err := git(dir, nil, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %s: %w", out, err)
	}
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(ignored), 0o644); err != nil {
			return fmt.Errorf("writing .gitignore: %w", err)
		}
	}
	return nil
}

// HasChanges reports whether the work tree differs from HEAD, including
// untracked files.
func HasChanges(dir string) (bool, error) {
	out, err := git(dir, nil, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %s: %w", out, err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// CommitAll stages all files and creates a commit as author, who is also
// used as committer. Returns the short commit hash.
func CommitAll(dir, message string, author Author) (string, error) {
	env := []string{
		"GIT_AUTHOR_NAME=" + author.Name,
		"GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_COMMITTER_NAME=" + author.Name,
		"GIT_COMMITTER_EMAIL=" + author.Email,
	}

	if out, err := git(dir, nil, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}
	if out, err := git(dir, env, "commit", "--quiet", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	out, err := git(dir, nil, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %s: %w", out, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitIfChanged commits only when HasChanges reports a difference. The
// returned hash is empty when there was nothing to commit.
func CommitIfChanged(dir, message string, author Author) (string, error) {
	changed, err := HasChanges(dir)
	if err != nil || !changed {
		return "", err
	}
	return CommitAll(dir, message, author)
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func git(dir string, env []string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	return cmd.CombinedOutput()
}
