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

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeremyhahn/go-pkgtrust/pkg/repo"
	"github.com/spf13/cobra"
)

var checkRepoID string

var checkCmd = &cobra.Command{
	Use:   "check <package.rpm> [<package.rpm>...]",
	Short: "Check package signatures",
	Long: `Check verifies the GPG signature of each package file against the
keys trusted on this system and reports a per-package verdict. Packages
are treated as command line packages unless a repository id is given
with --repo, in which case that repository's gpgcheck setting decides
whether the check runs at all.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, args)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkRepoID, "repo", "",
		"repository id the packages belong to (gpgcheck enabled)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	svc, closer, err := newService()
	if err != nil {
		return err
	}
	defer closer()

	var source *repo.Repo
	if checkRepoID != "" {
		source = &repo.Repo{
			ID:   checkRepoID,
			Type: repo.TypeRepository,
			Config: repo.Config{
				GPGCheck: globalConfig.RepoGPGCheck(checkRepoID),
			},
		}
	}

	failed := 0
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		printVerbose("checking %s", path)

		result, err := svc.CheckPackageSignature(cmd.Context(), repo.Package{
			Path: path,
			Repo: source,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s\n", arg, result)
		if !result.OK() {
			failed++
		}
	}

	if failed > 0 {
		// Exit non-zero without cobra's error prefix; verdicts were
		// already printed per package.
		fmt.Fprintf(os.Stderr, "%d package(s) failed signature check\n", failed)
		os.Exit(1)
	}
	return nil
}
