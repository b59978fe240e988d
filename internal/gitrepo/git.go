// Package gitrepo inspects a submission's git repository through the git CLI.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spboyer/bagcheck/internal/failures"
)

// LogDelimiter separates the fields of one line of [LogFormat] output.
const LogDelimiter = "#"

// LogFormat is the --pretty format used by [Inspector.CommitLog]:
// short hash, author name, author email and subject.
const LogFormat = "%h" + LogDelimiter + "%an" + LogDelimiter + "%ae" + LogDelimiter + "%s"

// Commit is one entry of the commit log.
type Commit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Subject     string
}

// Inspector runs git commands against the repository rooted at Dir.
type Inspector struct {
	Dir string
	// Git is the git executable. Defaults to "git" on PATH.
	Git string
}

// New returns an Inspector for the repository at dir.
func New(dir string) *Inspector {
	return &Inspector{Dir: dir}
}

func (in *Inspector) command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, in.gitBin(), append([]string{"-C", in.Dir}, args...)...)
}

// output runs git and returns trimmed stdout. Failures carry stderr.
func (in *Inspector) output(ctx context.Context, op string, args ...string) (string, error) {
	cmd := in.command(ctx, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("Running git", "dir", in.Dir, "args", args)

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", failures.New(op, failures.KindCommand, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsValidRepository returns true if dir is the top level of a git work tree.
// A missing git binary is reported as an error rather than false.
func (in *Inspector) IsValidRepository(ctx context.Context, dir string) (bool, error) {
	cmd := exec.CommandContext(ctx, in.gitBin(), "-C", dir, "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, failures.New("git rev-parse", failures.KindCommand, err)
	}
	top := strings.TrimSpace(string(out))
	if top == "" {
		return false, nil
	}

	// A directory nested inside some other repository isn't a submission.
	want, err := canonical(dir)
	if err != nil {
		return false, failures.New("resolving "+dir, failures.KindUnknown, err)
	}
	got, err := canonical(filepath.FromSlash(top))
	if err != nil {
		return false, failures.New("resolving "+top, failures.KindUnknown, err)
	}
	if got != want {
		slog.Debug("Not a repository root", "dir", want, "toplevel", got)
		return false, nil
	}
	return true, nil
}

// canonical returns the absolute, symlink-free form of path.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (in *Inspector) gitBin() string {
	if in.Git == "" {
		return "git"
	}
	return in.Git
}

// ListBranches returns the local branch names matching any of patterns.
func (in *Inspector) ListBranches(ctx context.Context, patterns ...string) ([]string, error) {
	args := append([]string{"branch", "--list", "--format=%(refname:short)"}, patterns...)
	out, err := in.output(ctx, "git branch", args...)
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			branches = append(branches, l)
		}
	}
	return branches, nil
}

// Checkout switches the work tree to branch.
func (in *Inspector) Checkout(ctx context.Context, branch string) error {
	if _, err := in.output(ctx, "git checkout", "checkout", "--quiet", branch); err != nil {
		return failures.New("git checkout "+branch, failures.KindCheckout, errors.Unwrap(err))
	}
	return nil
}

// CommitLog returns the commits reachable from HEAD, newest first.
func (in *Inspector) CommitLog(ctx context.Context) ([]Commit, error) {
	out, err := in.output(ctx, "git log", "log", "--pretty=format:"+LogFormat)
	if err != nil {
		return nil, err
	}
	return ParseLog(out)
}

// ParseLog parses [LogFormat] output. The subject is the last field, so it may
// itself contain the delimiter. Blank lines are skipped.
func ParseLog(out string) ([]Commit, error) {
	var commits []Commit
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, LogDelimiter, 4)
		if len(fields) != 4 {
			return nil, failures.New("parsing git log", failures.KindMalformed,
				fmt.Errorf("line %d has %d fields, expected 4: %q", i+1, len(fields), line))
		}
		commits = append(commits, Commit{
			Hash:        fields[0],
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			Subject:     fields[3],
		})
	}
	return commits, nil
}
