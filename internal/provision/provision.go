// Package provision orchestrates a full workspace run: configuration
// resolution, repository sync, environment provisioning and artifact
// generation, in that order. Resolution completes before anything on disk
// is mutated.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/config"
	"github.com/odt-devops/odt-env/internal/execx"
	"github.com/odt-devops/odt-env/internal/gitsync"
	"github.com/odt-devops/odt-env/internal/logx"
	"github.com/odt-devops/odt-env/internal/venv"
	"github.com/odt-devops/odt-env/internal/workspace"
)

// Options selects what a provisioning run does.
type Options struct {
	IniPath  string
	Root     string
	DestRoot string // empty means same as Root

	SyncOdoo   bool
	SyncAddons bool

	CreateVenv       bool
	RebuildVenv      bool
	CreateWheelhouse bool
	ReuseWheelhouse  bool

	NoConfigs   bool
	NoScripts   bool
	NoDataDir   bool
	ClearCaches bool
}

// Runner executes provisioning runs.
type Runner struct {
	exec execx.Runner
	git  gitsync.Git
	obs  gitsync.Observer
	log  zerolog.Logger
}

// NewRunner wires a Runner against the real system.
func NewRunner() *Runner {
	runner := execx.NewOSRunner()
	return &Runner{
		exec: runner,
		git:  gitsync.NewCLI(runner),
		obs:  gitsync.NewObserver(),
		log:  logx.WithComponent("provision"),
	}
}

// Run performs one provisioning run and returns its summary.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := workspace.CheckRoot(opts.Root); err != nil {
		return nil, err
	}

	build := workspace.NewLayout(opts.Root)
	deployRoot := opts.DestRoot
	if deployRoot == "" {
		deployRoot = opts.Root
	}
	deploy := workspace.NewLayout(deployRoot)

	project, resolved, err := r.resolve(opts, build, deploy)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Msg("resolved configuration:\n" + resolved.AuditString())

	if !opts.NoDataDir {
		if dir, ok := resolved.Get(config.SectionConfig, "data_dir"); ok && dir != "" {
			deploy = deploy.WithDataDir(dir)
		}
	}

	if err := build.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create workspace directories: %w", err)
	}

	summary := &Summary{
		Root:     build.Root,
		DestRoot: deploy.Root,
		ConfPath: build.ConfPath,
	}

	if opts.SyncOdoo || opts.SyncAddons {
		synced, err := r.sync(ctx, opts, build, project)
		if err != nil {
			return summary, err
		}
		summary.Synced = synced
	}

	if opts.CreateVenv {
		if err := r.provisionVenv(ctx, opts, build, project); err != nil {
			return summary, err
		}
		summary.VenvDir = build.VenvDir
		if opts.CreateWheelhouse || opts.ReuseWheelhouse {
			summary.WheelhouseDir = build.WheelhouseDir
		}
	}

	if !opts.NoConfigs {
		if err := r.writeConf(build, deploy, project); err != nil {
			return summary, err
		}
		summary.ConfWritten = true
	}

	if !opts.NoScripts {
		dbName, _ := resolved.Get(config.SectionConfig, "db_name")
		writer := workspace.NewScriptWriter(build, runtime.GOOS == "windows")
		if err := writer.WriteAll(dbName); err != nil {
			return summary, err
		}
		summary.Scripts = writer.Names(dbName)
	}

	return summary, nil
}

// resolve expands, merges and interpolates the configuration in both
// scopes and decodes it into its typed form.
func (r *Runner) resolve(opts Options, build, deploy workspace.Layout) (*config.Project, *config.Resolved, error) {
	absIni, err := filepath.Abs(opts.IniPath)
	if err != nil {
		return nil, nil, err
	}
	iniDir := filepath.Dir(absIni)

	buildVars := build.Vars(iniDir)
	deployVars := deploy.Vars(iniDir)

	sources, err := config.NewIncludeResolver(config.OSFileSystem{}, buildVars).Expand(absIni)
	if err != nil {
		return nil, nil, err
	}

	merged := config.Merge(sources)
	resolved, err := config.NewResolver(merged, buildVars, deployVars, config.SectionConfig).Resolve()
	if err != nil {
		return nil, nil, err
	}

	project, err := config.DecodeProject(resolved)
	if err != nil {
		return nil, nil, err
	}
	return project, resolved, nil
}

// sync converges the requested repositories: the core checkout first, then
// addons in declaration order.
func (r *Runner) sync(ctx context.Context, opts Options, build workspace.Layout, project *config.Project) ([]string, error) {
	var targets []gitsync.Target
	if opts.SyncOdoo {
		targets = append(targets, gitsync.Target{
			Name:    "odoo",
			URL:     project.Odoo.Repo,
			Branch:  project.Odoo.Branch,
			Dir:     build.OdooDir,
			Shallow: project.Odoo.ShallowClone,
		})
	}
	if opts.SyncAddons {
		for _, addon := range project.Addons {
			targets = append(targets, gitsync.Target{
				Name:    addon.Name,
				URL:     addon.Repo,
				Branch:  addon.Branch,
				Dir:     filepath.Join(build.AddonsDir, addon.Name),
				Shallow: addon.ShallowClone,
			})
		}
	}

	if err := gitsync.NewEngine(r.git, r.obs).SyncAll(ctx, targets); err != nil {
		return nil, err
	}
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return names, nil
}

// provisionVenv creates or rebuilds the isolated environment and installs
// the locked requirement set.
func (r *Runner) provisionVenv(ctx context.Context, opts Options, build workspace.Layout, project *config.Project) error {
	if err := venv.CheckUV(); err != nil {
		return err
	}

	if opts.RebuildVenv {
		r.log.Info().Str("venv", build.VenvDir).Msg("removing existing virtualenv")
		if err := os.RemoveAll(build.VenvDir); err != nil {
			return fmt.Errorf("remove existing virtualenv: %w", err)
		}
	}

	prov := venv.NewProvisioner(r.exec, build)

	if opts.ReuseWheelhouse {
		if err := prov.ValidateWheelhouse(project.Virtualenv); err != nil {
			return err
		}
	}

	if err := prov.EnsureVenv(ctx, project.Virtualenv, true); err != nil {
		return err
	}

	if !opts.ReuseWheelhouse {
		reqFiles := r.requirementFiles(build, project)
		if err := prov.CompileLock(ctx, project.Virtualenv, reqFiles); err != nil {
			return err
		}
		if opts.CreateWheelhouse {
			if err := prov.BuildWheelhouse(ctx, opts.ClearCaches); err != nil {
				return err
			}
		}
	}

	offline := opts.CreateWheelhouse || opts.ReuseWheelhouse
	if err := prov.InstallLocked(ctx, offline); err != nil {
		return err
	}
	return prov.InstallEditable(ctx, build.OdooDir)
}

// requirementFiles lists the per-repository requirements.txt candidates.
// Missing ones are skipped by the aggregator.
func (r *Runner) requirementFiles(build workspace.Layout, project *config.Project) []string {
	files := []string{filepath.Join(build.OdooDir, "requirements.txt")}
	for _, addon := range project.Addons {
		files = append(files, filepath.Join(build.AddonsDir, addon.Name, "requirements.txt"))
	}
	return files
}

// writeConf renders and atomically writes the runtime configuration.
func (r *Runner) writeConf(build, deploy workspace.Layout, project *config.Project) error {
	userValue := project.Options.Value("addons_path")
	addonNames := make([]string, len(project.Addons))
	for i, a := range project.Addons {
		addonNames[i] = a.Name
	}

	paths := workspace.AddonsPath(build, deploy, addonNames, userValue, nil)
	content := workspace.RenderConf(project.Options, deploy, paths)
	if err := workspace.WriteConf(build.ConfPath, content); err != nil {
		return err
	}
	r.log.Info().Str("path", build.ConfPath).Msg("wrote runtime configuration")
	return nil
}
