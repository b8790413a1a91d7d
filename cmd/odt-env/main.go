// Command odt-env provisions an Odoo workspace from a hierarchical INI
// configuration: it syncs the declared repositories, builds the isolated
// Python environment and generates the runtime configuration and helper
// scripts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/odt-devops/odt-env/internal/logx"
	"github.com/odt-devops/odt-env/internal/provision"
)

var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("odt-env", flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: odt-env [flags] <config.ini>\n\nFlags:\n%s", flags.FlagUsages())
	}

	var (
		root     = flags.String("root", ".", "workspace root directory (must exist)")
		destRoot = flags.String("dest-root", "", "deployment root the generated artifacts describe (defaults to --root)")

		syncOdoo   = flags.Bool("sync-odoo", false, "sync the core Odoo repository")
		syncAddons = flags.Bool("sync-addons", false, "sync the declared addon repositories")
		syncAll    = flags.Bool("sync-all", false, "sync the core repository and all addons")

		createVenv       = flags.Bool("create-venv", false, "create the virtualenv if missing")
		rebuildVenv      = flags.Bool("rebuild-venv", false, "remove and recreate the virtualenv (implies --create-venv)")
		createWheelhouse = flags.Bool("create-wheelhouse", false, "compile the lock file and build the wheelhouse")
		reuseWheelhouse  = flags.Bool("reuse-wheelhouse", false, "install from an existing wheelhouse without rebuilding it")
		clearCaches      = flags.Bool("clear-caches", false, "purge the pip wheel cache before building wheels")

		noConfigs = flags.Bool("no-configs", false, "skip generating the runtime configuration")
		noScripts = flags.Bool("no-scripts", false, "skip generating helper scripts")
		noDataDir = flags.Bool("no-data-dir", false, "ignore the configured data_dir override")

		logLevel    = flags.String("log-level", "", "log level (debug, info, warn, error)")
		showVersion = flags.Bool("version", false, "print version and exit")
	)

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitUsage
	}

	if *showVersion {
		fmt.Println("odt-env", version)
		return exitOK
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one configuration file argument is required")
		flags.Usage()
		return exitUsage
	}

	if *syncAll && (*syncOdoo || *syncAddons) {
		fmt.Fprintln(os.Stderr, "Error: --sync-all cannot be combined with --sync-odoo or --sync-addons")
		return exitUsage
	}
	if *rebuildVenv {
		*createVenv = true
	}
	if *reuseWheelhouse && !*createVenv {
		fmt.Fprintln(os.Stderr, "Error: --reuse-wheelhouse requires --create-venv")
		return exitUsage
	}
	if *reuseWheelhouse && *createWheelhouse {
		fmt.Fprintln(os.Stderr, "Error: --reuse-wheelhouse conflicts with --create-wheelhouse")
		return exitUsage
	}

	logx.Configure(logx.Config{Level: *logLevel})

	opts := provision.Options{
		IniPath:          flags.Arg(0),
		Root:             *root,
		DestRoot:         *destRoot,
		SyncOdoo:         *syncOdoo || *syncAll,
		SyncAddons:       *syncAddons || *syncAll,
		CreateVenv:       *createVenv,
		RebuildVenv:      *rebuildVenv,
		CreateWheelhouse: *createWheelhouse,
		ReuseWheelhouse:  *reuseWheelhouse,
		NoConfigs:        *noConfigs,
		NoScripts:        *noScripts,
		NoDataDir:        *noDataDir,
		ClearCaches:      *clearCaches,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := provision.NewRunner().Run(ctx, opts)
	if err != nil {
		logger := logx.Base()
		logger.Error().Err(err).Msg("provisioning failed")
		return exitError
	}

	fmt.Println(summary.Render())
	return exitOK
}
