// Package gitsync converges on-disk git checkouts to their declared
// targets: branch, shallow or full history, clean working tree.
//
// The state-machine logic lives in Engine and operates against two narrow
// capability interfaces: Git (mutating operations, backed by the external
// git binary) and Observer (state inspection, backed by go-git). Both are
// faked in tests so the transition table can be exercised without real
// repositories.
package gitsync

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/execx"
	"github.com/odt-devops/odt-env/internal/logx"
)

// wildcardRefspec fetches all remote branches. Repos cloned with
// --single-branch carry a restricted refspec that must be widened before a
// full fetch can see every branch.
const wildcardRefspec = "+refs/heads/*:refs/remotes/origin/*"

// Git is the mutating capability the sync engine needs from a
// version-control tool.
type Git interface {
	// Clone clones url into dest with the given branch checked out. When
	// depth > 0 the clone is shallow and restricted to that single branch.
	Clone(ctx context.Context, url, dest, branch string, depth int) error
	// FetchAll fetches all refs and tags from origin, pruning stale ones.
	FetchAll(ctx context.Context, dir string) error
	// FetchBranch fetches only the named branch from origin, at the given
	// depth when depth > 0.
	FetchBranch(ctx context.Context, dir, branch string, depth int) error
	// Unshallow converts a shallow checkout to full history.
	Unshallow(ctx context.Context, dir string) error
	// WidenFetchRefspec reconfigures origin to fetch all branches.
	WidenFetchRefspec(ctx context.Context, dir string) error
	// HardReset force-switches the local branch to origin/<branch> and
	// resets the working tree to it.
	HardReset(ctx context.Context, dir, branch string) error
}

// CLI implements Git by invoking the external git binary through an
// execx.Runner.
type CLI struct {
	runner execx.Runner
	log    zerolog.Logger
}

// NewCLI creates a CLI-backed Git implementation.
func NewCLI(runner execx.Runner) *CLI {
	return &CLI{runner: runner, log: logx.WithComponent("git")}
}

func (g *CLI) Clone(ctx context.Context, url, dest, branch string, depth int) error {
	cmd := []string{"git", "clone"}
	if depth > 0 {
		cmd = append(cmd, "--depth", strconv.Itoa(depth), "--single-branch")
	}
	if branch != "" {
		cmd = append(cmd, "--branch", branch)
	}
	cmd = append(cmd, url, dest)
	_, err := g.runner.Run(ctx, cmd, "")
	return err
}

func (g *CLI) FetchAll(ctx context.Context, dir string) error {
	_, err := g.runner.Run(ctx, []string{"git", "fetch", "--all", "--tags", "--prune"}, dir)
	return err
}

func (g *CLI) FetchBranch(ctx context.Context, dir, branch string, depth int) error {
	cmd := []string{"git", "fetch", "--prune"}
	if depth > 0 {
		cmd = append(cmd, "--depth", strconv.Itoa(depth))
	}
	cmd = append(cmd, "origin", branch)
	_, err := g.runner.Run(ctx, cmd, dir)
	return err
}

func (g *CLI) Unshallow(ctx context.Context, dir string) error {
	_, err := g.runner.Run(ctx, []string{"git", "fetch", "--unshallow", "--tags", "origin"}, dir)
	return err
}

func (g *CLI) WidenFetchRefspec(ctx context.Context, dir string) error {
	// Existing refspecs may be restricted; inspect before replacing.
	res, err := g.runner.Run(ctx, []string{"git", "config", "--get-all", "remote.origin.fetch"}, dir)
	if err == nil {
		for _, line := range splitLines(res.Stdout) {
			if line == wildcardRefspec {
				return nil
			}
		}
	}
	// --unset-all exits non-zero when nothing was set; that is fine.
	_, _ = g.runner.Run(ctx, []string{"git", "config", "--unset-all", "remote.origin.fetch"}, dir)
	_, err = g.runner.Run(ctx, []string{"git", "config", "--add", "remote.origin.fetch", wildcardRefspec}, dir)
	return err
}

func (g *CLI) HardReset(ctx context.Context, dir, branch string) error {
	remote := "origin/" + branch
	if _, err := g.runner.Run(ctx, []string{"git", "rev-parse", "--verify", remote}, dir); err != nil {
		return err
	}
	if _, err := g.runner.Run(ctx, []string{"git", "checkout", "-B", branch, remote}, dir); err != nil {
		return err
	}
	_, err := g.runner.Run(ctx, []string{"git", "reset", "--hard", remote}, dir)
	return err
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
