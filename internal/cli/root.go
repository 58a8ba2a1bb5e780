// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-pkgtrust.
//
// go-pkgtrust is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the pkgtrust command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/jeremyhahn/go-pkgtrust/internal/config"
	"github.com/jeremyhahn/go-pkgtrust/pkg/history"
	"github.com/jeremyhahn/go-pkgtrust/pkg/logging"
	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm/rpmexec"
	"github.com/jeremyhahn/go-pkgtrust/pkg/trust"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	installRoot string
	verbose     bool

	globalConfig *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pkgtrust",
	Short: "pkgtrust CLI - Package signature trust tool",
	Long: `pkgtrust CLI verifies package signatures against the system trust
database and manages the set of trusted public keys: resolving key
references (paths or URLs), checking for their presence and importing
them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is /etc/pkgtrust/pkgtrust.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&installRoot, "installroot", "",
		"install root for trust database operations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration for this invocation.
func loadConfig() error {
	path := configFile
	if path == "" {
		if _, err := os.Stat("/etc/pkgtrust/pkgtrust.yaml"); err == nil {
			path = "/etc/pkgtrust/pkgtrust.yaml"
		}
	}

	if path == "" {
		globalConfig = config.DefaultConfig()
	} else {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		globalConfig = cfg
	}

	if installRoot != "" {
		globalConfig.GPG.InstallRoot = installRoot
	}
	return nil
}

// newService builds the trust service over the host's rpm tooling. The
// returned closer releases the history store, if one is configured.
func newService() (*trust.Signature, func(), error) {
	logger := logging.NewLogger(verbose || globalConfig.Debug())
	opts := []trust.Option{trust.WithLogger(logger)}

	closer := func() {}
	if globalConfig.History.Enabled {
		store, err := history.Open(globalConfig.History.Path)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, trust.WithRecorder(store))
		closer = func() { _ = store.Close() }
	}

	svc := trust.NewSignature(rpmexec.New(), trust.Config{
		LocalpkgGPGCheck: globalConfig.GPG.LocalpkgGPGCheck,
		InstallRoot:      globalConfig.GPG.InstallRoot,
	}, opts...)
	return svc, closer, nil
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
