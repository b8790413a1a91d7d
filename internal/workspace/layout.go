// Package workspace models the on-disk layout of an Odoo workspace and
// generates its derived artifacts: the rendered server configuration and
// the helper scripts.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ConfFileName is the rendered runtime configuration file name.
const ConfFileName = "odoo-server.conf"

// Layout is the fixed directory set derived from one root path. Two
// layouts exist per run: the build layout (where the workspace is
// physically created) and the deploy layout (the paths generated artifacts
// describe). The two are identical unless a deploy root is given.
type Layout struct {
	Root          string
	OdooDir       string
	AddonsDir     string
	BackupsDir    string
	ConfigsDir    string
	ConfPath      string
	DataDir       string
	ScriptsDir    string
	WheelhouseDir string
	VenvDir       string
	VenvPython    string
}

// NewLayout derives the layout from a root path.
func NewLayout(root string) Layout {
	configsDir := filepath.Join(root, "odoo-configs")
	venvDir := filepath.Join(root, "venv")
	return Layout{
		Root:          root,
		OdooDir:       filepath.Join(root, "odoo"),
		AddonsDir:     filepath.Join(root, "odoo-addons"),
		BackupsDir:    filepath.Join(root, "odoo-backups"),
		ConfigsDir:    configsDir,
		ConfPath:      filepath.Join(configsDir, ConfFileName),
		DataDir:       filepath.Join(root, "odoo-data"),
		ScriptsDir:    filepath.Join(root, "odoo-scripts"),
		WheelhouseDir: filepath.Join(root, "wheelhouse"),
		VenvDir:       venvDir,
		VenvPython:    venvPython(venvDir),
	}
}

// Vars returns the interpolation variable scope for this layout. iniDir is
// the entry configuration file's directory and is always build-side, even
// in the deploy scope.
func (l Layout) Vars(iniDir string) map[string]string {
	return map[string]string{
		"ini_dir":     iniDir,
		"root_dir":    l.Root,
		"odoo_dir":    l.OdooDir,
		"addons_dir":  l.AddonsDir,
		"backups_dir": l.BackupsDir,
		"configs_dir": l.ConfigsDir,
		"config_path": l.ConfPath,
		"scripts_dir": l.ScriptsDir,
		"venv_python": l.VenvPython,
	}
}

// WithDataDir returns a copy of the layout with the data directory
// replaced. Relative paths resolve against the layout root.
func (l Layout) WithDataDir(dir string) Layout {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(l.Root, dir)
	}
	l.DataDir = filepath.Clean(dir)
	return l
}

// CoreAddonsCandidates returns the directories inside the core checkout
// that may hold built-in addons, in fixed order.
func (l Layout) CoreAddonsCandidates() []string {
	return []string{
		filepath.Join(l.OdooDir, "addons"),
		filepath.Join(l.OdooDir, "odoo", "addons"),
	}
}

// EnsureDirs creates the build-side directories the provisioning run
// writes into.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.ConfigsDir, l.AddonsDir, l.ScriptsDir, l.BackupsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func venvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// RootNotFoundError is returned when the declared build root does not
// exist on disk.
type RootNotFoundError struct {
	Path string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("workspace root does not exist: %s", e.Path)
}

// CheckRoot verifies that the build root exists and is a directory. The
// deploy root is exempt: it need not exist on the build machine.
func CheckRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return &RootNotFoundError{Path: path}
	}
	return nil
}
