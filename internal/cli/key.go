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
	"context"
	"fmt"

	"github.com/jeremyhahn/go-pkgtrust/pkg/download"
	"github.com/jeremyhahn/go-pkgtrust/pkg/gpg"
	"github.com/spf13/cobra"
)

const keyDownloadRetries = 3

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage trusted public keys",
	Long: `Key commands resolve a public key reference (a local path, a
file:// URL or a remote URL), inspect the key and manage its presence
in the system trust database.`,
}

var keyImportCmd = &cobra.Command{
	Use:   "import <key-ref>",
	Short: "Import a public key into the trust database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeyImport(cmd.Context(), args[0])
	},
}

var keyPresentCmd = &cobra.Command{
	Use:   "present <key-ref>",
	Short: "Check whether a public key is already trusted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeyPresent(args[0])
	},
}

var keyInfoCmd = &cobra.Command{
	Use:   "info <key-ref>",
	Short: "Show the identity of a public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeyInfo(cmd.Context(), args[0])
	},
}

func init() {
	keyCmd.AddCommand(keyImportCmd)
	keyCmd.AddCommand(keyPresentCmd)
	keyCmd.AddCommand(keyInfoCmd)
}

// resolveKey fetches and parses the referenced key. Callers own the
// returned KeyInfo and must Close it.
func resolveKey(ctx context.Context, ref string) (*gpg.KeyInfo, error) {
	downloader := download.NewHTTPDownloader(keyDownloadRetries)
	extractor := &gpg.OpenPGPExtractor{}
	return gpg.NewKeyInfo(ctx, ref, downloader, extractor)
}

func runKeyImport(ctx context.Context, ref string) error {
	key, err := resolveKey(ctx, ref)
	if err != nil {
		return err
	}
	defer key.Close()

	svc, closer, err := newService()
	if err != nil {
		return err
	}
	defer closer()

	imported, err := svc.ImportKey(ctx, key)
	if err != nil {
		return err
	}
	if imported {
		fmt.Printf("imported key 0x%s (%s)\n", key.ShortKeyID(), key.UserID())
	} else {
		fmt.Printf("key 0x%s is already trusted\n", key.ShortKeyID())
	}
	return nil
}

func runKeyPresent(ref string) error {
	ctx := context.Background()
	key, err := resolveKey(ctx, ref)
	if err != nil {
		return err
	}
	defer key.Close()

	svc, closer, err := newService()
	if err != nil {
		return err
	}
	defer closer()

	present, err := svc.KeyPresent(key)
	if err != nil {
		return err
	}
	if present {
		fmt.Printf("key 0x%s is trusted\n", key.ShortKeyID())
	} else {
		fmt.Printf("key 0x%s is not trusted\n", key.ShortKeyID())
	}
	return nil
}

func runKeyInfo(ctx context.Context, ref string) error {
	key, err := resolveKey(ctx, ref)
	if err != nil {
		return err
	}
	defer key.Close()

	fmt.Printf("URL:         %s\n", key.URL())
	fmt.Printf("Path:        %s\n", key.Path())
	fmt.Printf("Key ID:      %s\n", key.KeyID())
	fmt.Printf("Short ID:    %s\n", key.ShortKeyID())
	fmt.Printf("Fingerprint: %s\n", key.Fingerprint())
	fmt.Printf("User ID:     %s\n", key.UserID())
	return nil
}
