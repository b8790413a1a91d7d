// Package venv provisions the workspace's isolated Python environment via
// the external uv tool: managed interpreter install, venv creation, lock
// compilation, wheelhouse build and offline installation.
package venv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/config"
	"github.com/odt-devops/odt-env/internal/execx"
	"github.com/odt-devops/odt-env/internal/logx"
	"github.com/odt-devops/odt-env/internal/workspace"
)

// Requirement sets every environment receives regardless of configuration.
var defaultRequirements = []string{
	"pip",
	"setuptools",
	"wheel",
	"click-odoo-contrib",
}

// Lock and constraint file names inside the wheelhouse directory.
const (
	lockInputName  = "all-requirements.in.txt"
	lockOutputName = "all-requirements.lock.txt"
	constraintName = "build-constraints.txt"
)

// Provisioner creates and updates the isolated Python environment.
type Provisioner struct {
	runner execx.Runner
	layout workspace.Layout
	log    zerolog.Logger
}

// NewProvisioner creates a Provisioner working inside the build layout.
func NewProvisioner(runner execx.Runner, layout workspace.Layout) *Provisioner {
	return &Provisioner{runner: runner, layout: layout, log: logx.WithComponent("venv")}
}

// CheckUV verifies the uv binary is reachable.
func CheckUV() error {
	if _, err := exec.LookPath("uv"); err != nil {
		return fmt.Errorf("required command not found in PATH: uv")
	}
	return nil
}

// LockPath returns the compiled lock file location.
func (p *Provisioner) LockPath() string {
	return filepath.Join(p.layout.WheelhouseDir, lockOutputName)
}

func (p *Provisioner) constraintsPath() string {
	return filepath.Join(p.layout.WheelhouseDir, constraintName)
}

// EnsureVenv creates the virtualenv when missing: installs the managed
// interpreter (unless disabled), creates the venv with uv and seeds the
// base packaging tools.
func (p *Provisioner) EnsureVenv(ctx context.Context, cfg config.VirtualenvConfig, seed bool) error {
	if info, err := os.Stat(p.layout.VenvDir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("venv path exists but is not a directory: %s", p.layout.VenvDir)
		}
		return nil
	}

	if cfg.ManagedPython {
		tag := managedPythonTag(cfg.PythonVersion)
		p.log.Info().Str("python", tag).Msg("installing managed python with uv")
		if _, err := p.runner.Run(ctx, []string{"uv", "python", "install", tag}, p.layout.Root); err != nil {
			return fmt.Errorf("install managed python %s: %w", tag, err)
		}
	}

	p.log.Info().Str("venv", p.layout.VenvDir).Str("python", cfg.PythonVersion).Msg("creating virtualenv with uv")
	cmd := []string{"uv", "venv", "-p", cfg.PythonVersion, p.layout.VenvDir}
	if !cfg.ManagedPython {
		cmd = append(cmd, "--no-managed-python")
	}
	if _, err := p.runner.Run(ctx, cmd, p.layout.Root); err != nil {
		return fmt.Errorf("create virtualenv at %s: %w", p.layout.VenvDir, err)
	}

	if seed {
		if _, err := os.Stat(p.layout.VenvPython); err != nil {
			return fmt.Errorf("venv python not found at expected path: %s", p.layout.VenvPython)
		}
		p.log.Info().Str("venv", p.layout.VenvDir).Msg("installing seed packages into venv")
		seedCmd := []string{"uv", "pip", "install", "-p", p.layout.VenvPython, "pip", "setuptools", "wheel"}
		if _, err := p.runner.Run(ctx, seedCmd, p.layout.Root); err != nil {
			return fmt.Errorf("install seed packages into venv: %w", err)
		}
	}
	return nil
}

// CompileLock writes the aggregated requirements input and compiles the
// single lock file with uv pip compile.
func (p *Provisioner) CompileLock(ctx context.Context, cfg config.VirtualenvConfig, requirementFiles []string) error {
	if err := os.MkdirAll(p.layout.WheelhouseDir, 0o755); err != nil {
		return err
	}

	if len(cfg.BuildConstraints) > 0 {
		content := ""
		for _, c := range cfg.BuildConstraints {
			content += c + "\n"
		}
		if err := renameio.WriteFile(p.constraintsPath(), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write build constraints: %w", err)
		}
	}

	base := append([]string{}, defaultRequirements...)
	base = append(base, cfg.Requirements...)

	input, err := BuildLockInput(p.layout.Root, requirementFiles, base, cfg.RequirementsIgnore)
	if err != nil {
		return err
	}
	inPath := filepath.Join(p.layout.WheelhouseDir, lockInputName)
	if err := renameio.WriteFile(inPath, []byte(input), 0o644); err != nil {
		return fmt.Errorf("write lock input: %w", err)
	}

	p.log.Info().Str("in", inPath).Str("out", p.LockPath()).Msg("compiling lock file with uv")
	cmd := []string{"uv", "pip", "compile", "-p", p.layout.VenvPython, inPath, "-o", p.LockPath()}
	if fileExists(p.constraintsPath()) {
		cmd = append(cmd, "--build-constraints", p.constraintsPath())
	}
	if _, err := p.runner.Run(ctx, cmd, p.layout.Root); err != nil {
		return fmt.Errorf("compile requirements lock file: %w", err)
	}
	return nil
}

// BuildWheelhouse builds wheels for every locked requirement into the
// wheelhouse directory.
func (p *Provisioner) BuildWheelhouse(ctx context.Context, clearWheelCache bool) error {
	if !fileExists(p.LockPath()) {
		return fmt.Errorf("requirements lock file not found: %s", p.LockPath())
	}
	if err := os.MkdirAll(p.layout.WheelhouseDir, 0o755); err != nil {
		return err
	}

	if clearWheelCache {
		p.log.Info().Msg("clearing pip wheel cache")
		if _, err := p.runner.Run(ctx, []string{p.layout.VenvPython, "-m", "pip", "cache", "purge"}, p.layout.Root); err != nil {
			return fmt.Errorf("clear pip wheel cache: %w", err)
		}
	}

	if fileExists(p.constraintsPath()) {
		p.log.Info().Str("constraints", p.constraintsPath()).Msg("installing build constraints into venv")
		cmd := []string{"uv", "pip", "install", "-p", p.layout.VenvPython, "-U", "-r", p.constraintsPath()}
		if _, err := p.runner.Run(ctx, cmd, p.layout.Root); err != nil {
			return fmt.Errorf("install build constraints: %w", err)
		}
	}

	p.log.Info().Str("wheelhouse", p.layout.WheelhouseDir).Msg("building wheelhouse")
	cmd := []string{p.layout.VenvPython, "-m", "pip", "wheel", "-r", p.LockPath(), "-w", p.layout.WheelhouseDir, "--no-deps"}
	if _, err := p.runner.Run(ctx, cmd, p.layout.Root); err != nil {
		return fmt.Errorf("build wheelhouse: %w", err)
	}
	return nil
}

// InstallLocked installs the locked requirement set into the venv. When
// offline is true the install is served entirely from the wheelhouse.
func (p *Provisioner) InstallLocked(ctx context.Context, offline bool) error {
	if !fileExists(p.LockPath()) {
		return fmt.Errorf("requirements lock file not found: %s", p.LockPath())
	}
	cmd := []string{"uv", "pip", "sync", "-p", p.layout.VenvPython}
	if offline {
		p.log.Info().Str("lock", p.LockPath()).Msg("installing requirements from wheelhouse")
		cmd = append(cmd, "--offline", "--no-index", "-f", p.layout.WheelhouseDir)
	} else {
		p.log.Info().Str("lock", p.LockPath()).Msg("installing locked requirements")
	}
	cmd = append(cmd, p.LockPath())
	if _, err := p.runner.Run(ctx, cmd, p.layout.Root); err != nil {
		return fmt.Errorf("install locked requirements: %w", err)
	}
	return nil
}

// InstallEditable installs the core checkout into the venv in editable
// mode so local source changes are picked up.
func (p *Provisioner) InstallEditable(ctx context.Context, dir string) error {
	p.log.Info().Str("dir", dir).Msg("installing editable package")
	cmd := []string{p.layout.VenvPython, "-m", "pip", "install", "--no-deps", "--no-build-isolation", "-e", dir}
	if _, err := p.runner.Run(ctx, cmd, p.layout.Root); err != nil {
		return fmt.Errorf("install %s in editable mode: %w", dir, err)
	}
	return nil
}

// ValidateWheelhouse checks an existing wheelhouse can serve an offline
// install: wheels present, lock present, constraints present when
// declared.
func (p *Provisioner) ValidateWheelhouse(cfg config.VirtualenvConfig) error {
	info, err := os.Stat(p.layout.WheelhouseDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("wheelhouse directory not found: %s", p.layout.WheelhouseDir)
	}
	wheels, _ := filepath.Glob(filepath.Join(p.layout.WheelhouseDir, "*.whl"))
	if len(wheels) == 0 {
		return fmt.Errorf("wheelhouse looks empty (no .whl files): %s", p.layout.WheelhouseDir)
	}
	if !fileExists(p.LockPath()) {
		return fmt.Errorf("lock file not found in wheelhouse: %s", p.LockPath())
	}
	if len(cfg.BuildConstraints) > 0 && !fileExists(p.constraintsPath()) {
		return fmt.Errorf("build constraints declared but %s not found", p.constraintsPath())
	}
	return nil
}

func managedPythonTag(version string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("cpython-%s-windows-x86_64-none", version)
	}
	return fmt.Sprintf("cpython-%s-linux-x86_64-gnu", version)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
