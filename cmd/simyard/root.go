// Package simyard is the command line interface for the device manager.
package simyard

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/icarus-itcs/simyard/internal/config"
	"github.com/icarus-itcs/simyard/internal/execx"
	"github.com/icarus-itcs/simyard/internal/logging"
	"github.com/icarus-itcs/simyard/internal/manager"
	"github.com/icarus-itcs/simyard/internal/metrics"
	"github.com/icarus-itcs/simyard/internal/platform"
	"github.com/icarus-itcs/simyard/internal/platform/android"
	"github.com/icarus-itcs/simyard/internal/platform/ios"
)

var (
	appVersion string
	appCommit  string
	appDate    string

	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "simyard",
	Short: "Manage iOS simulators and Android emulators from one place",
	Long: `simyard manages the lifecycle of iOS simulators and Android emulators
behind a single device abstraction: list, boot, shut down, restart, delete
and install apps without caring which toolchain is underneath.

Run 'simyard list' to see the devices your machine knows about.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: simyard.yaml in ~/.config/simyard or .)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the CLI. Version information is stamped by the build.
func Execute(version, commit, date string) error {
	appVersion = version
	appCommit = commit
	appDate = date

	err := rootCmd.Execute()
	if err != nil {
		if hint := remedyHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, renderHint(hint))
		}
	}
	return err
}

// app bundles everything a subcommand needs.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	mgr *manager.Manager
}

// buildApp loads the config and wires the manager. Metrics may be nil; only
// the serve command registers collectors.
func buildApp(m *metrics.Metrics) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.Log, os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	runner := execx.New(cfg.Exec.Timeout, log)

	var adapters []platform.Adapter
	if cfg.IOS.Enabled {
		adapters = append(adapters, ios.New(runner, log, ios.Options{
			Xcrun:         cfg.IOS.Xcrun,
			Open:          cfg.IOS.Open,
			ViewerApp:     cfg.IOS.ViewerApp,
			PollInterval:  cfg.IOS.PollInterval,
			BootAttempts:  cfg.IOS.BootAttempts,
			DrainAttempts: cfg.IOS.DrainAttempts,
			Settle:        cfg.IOS.Settle,
		}))
	}
	if cfg.Android.Enabled {
		adapters = append(adapters, android.New(runner, log, android.Options{
			Adb:                 cfg.Android.Adb,
			Emulator:            cfg.Android.Emulator,
			AvdHome:             cfg.Android.AvdHome,
			Skin:                cfg.Android.Skin,
			PollInterval:        cfg.Android.PollInterval,
			BootAttempts:        cfg.Android.BootAttempts,
			ShutdownAttempts:    cfg.Android.ShutdownAttempts,
			InstallBootAttempts: cfg.Android.InstallBootAttempts,
			Settle:              cfg.Android.Settle,
		}))
	}

	mgr := manager.New(manager.Options{
		CacheTTL: cfg.Cache.TTL,
		Log:      log,
		Metrics:  m,
	}, adapters...)

	return &app{cfg: cfg, log: log, mgr: mgr}, nil
}
