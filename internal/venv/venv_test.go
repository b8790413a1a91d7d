package venv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odt-devops/odt-env/internal/config"
	"github.com/odt-devops/odt-env/internal/execx"
	"github.com/odt-devops/odt-env/internal/workspace"
)

// recordingRunner records every command without executing anything.
type recordingRunner struct {
	commands [][]string
}

func (r *recordingRunner) Run(_ context.Context, command []string, _ string) (*execx.Result, error) {
	r.commands = append(r.commands, command)
	return &execx.Result{}, nil
}

func (r *recordingRunner) joined() []string {
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = strings.Join(c, " ")
	}
	return out
}

func vcfg() config.VirtualenvConfig {
	return config.VirtualenvConfig{PythonVersion: "3.11", ManagedPython: true}
}

func TestEnsureVenv(t *testing.T) {
	t.Run("CreatesWithManagedPython", func(t *testing.T) {
		layout := workspace.NewLayout(t.TempDir())
		runner := &recordingRunner{}
		prov := NewProvisioner(runner, layout)

		require.NoError(t, prov.EnsureVenv(context.Background(), vcfg(), false))
		joined := runner.joined()
		require.Len(t, joined, 2)
		assert.Contains(t, joined[0], "uv python install cpython-3.11-")
		assert.Equal(t, "uv venv -p 3.11 "+layout.VenvDir, joined[1])
	})

	t.Run("UnmanagedPython", func(t *testing.T) {
		layout := workspace.NewLayout(t.TempDir())
		runner := &recordingRunner{}
		prov := NewProvisioner(runner, layout)

		cfg := vcfg()
		cfg.ManagedPython = false
		require.NoError(t, prov.EnsureVenv(context.Background(), cfg, false))
		joined := runner.joined()
		require.Len(t, joined, 1)
		assert.Equal(t, "uv venv -p 3.11 "+layout.VenvDir+" --no-managed-python", joined[0])
	})

	t.Run("ExistingVenvUntouched", func(t *testing.T) {
		layout := workspace.NewLayout(t.TempDir())
		require.NoError(t, os.MkdirAll(layout.VenvDir, 0o755))
		runner := &recordingRunner{}
		prov := NewProvisioner(runner, layout)

		require.NoError(t, prov.EnsureVenv(context.Background(), vcfg(), true))
		assert.Empty(t, runner.commands)
	})
}

func TestCompileLock(t *testing.T) {
	root := t.TempDir()
	layout := workspace.NewLayout(root)
	runner := &recordingRunner{}
	prov := NewProvisioner(runner, layout)

	reqPath := filepath.Join(root, "requirements.txt")
	require.NoError(t, os.WriteFile(reqPath, []byte("lxml\npsycopg2\n"), 0o644))

	cfg := vcfg()
	cfg.Requirements = []string{"requests"}
	cfg.RequirementsIgnore = []string{"psycopg2"}
	cfg.BuildConstraints = []string{"setuptools<70"}

	require.NoError(t, prov.CompileLock(context.Background(), cfg, []string{reqPath}))

	// The aggregated input lands next to the lock file.
	data, err := os.ReadFile(filepath.Join(layout.WheelhouseDir, "all-requirements.in.txt"))
	require.NoError(t, err)
	input := string(data)
	assert.Contains(t, input, "requests")
	assert.Contains(t, input, "lxml")
	assert.Contains(t, input, "click-odoo-contrib")
	assert.Contains(t, input, "skipped (ignored package")

	constraints, err := os.ReadFile(filepath.Join(layout.WheelhouseDir, "build-constraints.txt"))
	require.NoError(t, err)
	assert.Equal(t, "setuptools<70\n", string(constraints))

	require.Len(t, runner.commands, 1)
	joined := runner.joined()[0]
	assert.Contains(t, joined, "uv pip compile")
	assert.Contains(t, joined, "--build-constraints")
	assert.Contains(t, joined, prov.LockPath())
}

func TestBuildWheelhouseRequiresLock(t *testing.T) {
	layout := workspace.NewLayout(t.TempDir())
	prov := NewProvisioner(&recordingRunner{}, layout)

	err := prov.BuildWheelhouse(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock file not found")
}

func TestInstallLocked(t *testing.T) {
	layout := workspace.NewLayout(t.TempDir())
	runner := &recordingRunner{}
	prov := NewProvisioner(runner, layout)

	require.NoError(t, os.MkdirAll(layout.WheelhouseDir, 0o755))
	require.NoError(t, os.WriteFile(prov.LockPath(), []byte("lxml==5.0\n"), 0o644))

	require.NoError(t, prov.InstallLocked(context.Background(), true))
	joined := runner.joined()[0]
	assert.Contains(t, joined, "uv pip sync")
	assert.Contains(t, joined, "--offline --no-index")
	assert.Contains(t, joined, layout.WheelhouseDir)

	runner.commands = nil
	require.NoError(t, prov.InstallLocked(context.Background(), false))
	joined = runner.joined()[0]
	assert.Contains(t, joined, "uv pip sync")
	assert.NotContains(t, joined, "--offline")
}

func TestValidateWheelhouse(t *testing.T) {
	layout := workspace.NewLayout(t.TempDir())
	prov := NewProvisioner(&recordingRunner{}, layout)
	cfg := vcfg()

	t.Run("MissingDir", func(t *testing.T) {
		assert.ErrorContains(t, prov.ValidateWheelhouse(cfg), "wheelhouse directory not found")
	})

	require.NoError(t, os.MkdirAll(layout.WheelhouseDir, 0o755))

	t.Run("NoWheels", func(t *testing.T) {
		assert.ErrorContains(t, prov.ValidateWheelhouse(cfg), "no .whl files")
	})

	require.NoError(t, os.WriteFile(filepath.Join(layout.WheelhouseDir, "lxml-5.0-py3-none-any.whl"), []byte("x"), 0o644))

	t.Run("NoLock", func(t *testing.T) {
		assert.ErrorContains(t, prov.ValidateWheelhouse(cfg), "lock file not found")
	})

	require.NoError(t, os.WriteFile(prov.LockPath(), []byte("lxml==5.0\n"), 0o644))

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, prov.ValidateWheelhouse(cfg))
	})

	t.Run("DeclaredConstraintsMustExist", func(t *testing.T) {
		withConstraints := cfg
		withConstraints.BuildConstraints = []string{"setuptools<70"}
		assert.ErrorContains(t, prov.ValidateWheelhouse(withConstraints), "build constraints declared")
	})
}
