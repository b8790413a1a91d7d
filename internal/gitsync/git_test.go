package gitsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odt-devops/odt-env/internal/execx"
)

// scriptedRunner records commands and serves canned results keyed by a
// space-joined command prefix.
type scriptedRunner struct {
	commands [][]string
	dirs     []string
	results  map[string]*execx.Result
	errs     map[string]error
}

func (r *scriptedRunner) Run(_ context.Context, command []string, dir string) (*execx.Result, error) {
	r.commands = append(r.commands, command)
	r.dirs = append(r.dirs, dir)
	joined := strings.Join(command, " ")
	for prefix, err := range r.errs {
		if strings.HasPrefix(joined, prefix) {
			return &execx.Result{}, err
		}
	}
	for prefix, res := range r.results {
		if strings.HasPrefix(joined, prefix) {
			return res, nil
		}
	}
	return &execx.Result{}, nil
}

func (r *scriptedRunner) joined() []string {
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = strings.Join(c, " ")
	}
	return out
}

func TestCLIClone(t *testing.T) {
	t.Run("Full", func(t *testing.T) {
		runner := &scriptedRunner{}
		cli := NewCLI(runner)
		require.NoError(t, cli.Clone(context.Background(), "https://example.com/r.git", "/dst", "17.0", 0))
		assert.Equal(t, []string{
			"git clone --branch 17.0 https://example.com/r.git /dst",
		}, runner.joined())
	})

	t.Run("Shallow", func(t *testing.T) {
		runner := &scriptedRunner{}
		cli := NewCLI(runner)
		require.NoError(t, cli.Clone(context.Background(), "https://example.com/r.git", "/dst", "17.0", 1))
		assert.Equal(t, []string{
			"git clone --depth 1 --single-branch --branch 17.0 https://example.com/r.git /dst",
		}, runner.joined())
	})
}

func TestCLIFetch(t *testing.T) {
	runner := &scriptedRunner{}
	cli := NewCLI(runner)

	require.NoError(t, cli.FetchAll(context.Background(), "/r"))
	require.NoError(t, cli.FetchBranch(context.Background(), "/r", "17.0", 1))
	require.NoError(t, cli.FetchBranch(context.Background(), "/r", "17.0", 0))
	require.NoError(t, cli.Unshallow(context.Background(), "/r"))

	assert.Equal(t, []string{
		"git fetch --all --tags --prune",
		"git fetch --prune --depth 1 origin 17.0",
		"git fetch --prune origin 17.0",
		"git fetch --unshallow --tags origin",
	}, runner.joined())
	assert.Equal(t, []string{"/r", "/r", "/r", "/r"}, runner.dirs)
}

func TestCLIWidenFetchRefspec(t *testing.T) {
	t.Run("AlreadyWide", func(t *testing.T) {
		runner := &scriptedRunner{results: map[string]*execx.Result{
			"git config --get-all remote.origin.fetch": {Stdout: wildcardRefspec + "\n"},
		}}
		cli := NewCLI(runner)
		require.NoError(t, cli.WidenFetchRefspec(context.Background(), "/r"))
		assert.Len(t, runner.commands, 1, "no reconfiguration when already wide")
	})

	t.Run("Restricted", func(t *testing.T) {
		runner := &scriptedRunner{results: map[string]*execx.Result{
			"git config --get-all remote.origin.fetch": {Stdout: "+refs/heads/17.0:refs/remotes/origin/17.0\n"},
		}}
		cli := NewCLI(runner)
		require.NoError(t, cli.WidenFetchRefspec(context.Background(), "/r"))
		assert.Equal(t, []string{
			"git config --get-all remote.origin.fetch",
			"git config --unset-all remote.origin.fetch",
			"git config --add remote.origin.fetch " + wildcardRefspec,
		}, runner.joined())
	})
}

func TestCLIHardReset(t *testing.T) {
	t.Run("Sequence", func(t *testing.T) {
		runner := &scriptedRunner{}
		cli := NewCLI(runner)
		require.NoError(t, cli.HardReset(context.Background(), "/r", "17.0"))
		assert.Equal(t, []string{
			"git rev-parse --verify origin/17.0",
			"git checkout -B 17.0 origin/17.0",
			"git reset --hard origin/17.0",
		}, runner.joined())
	})

	t.Run("UnknownRemoteBranch", func(t *testing.T) {
		cause := errors.New("unknown revision")
		runner := &scriptedRunner{errs: map[string]error{"git rev-parse": cause}}
		cli := NewCLI(runner)
		err := cli.HardReset(context.Background(), "/r", "17.0")
		assert.ErrorIs(t, err, cause)
		assert.Len(t, runner.commands, 1, "no checkout after failed verification")
	})
}
