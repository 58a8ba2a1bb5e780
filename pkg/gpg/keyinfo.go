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

// Package gpg resolves trusted-key candidates: a key reference (local path,
// file URL or remote URL) is turned into identity metadata plus an
// importable binary public-key packet.
package gpg

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeremyhahn/go-pkgtrust/pkg/download"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

// KeyInfo is one trusted-key candidate. It owns its packet bytes and, for
// remote references, the temporary file holding the downloaded key. KeyInfo
// is immutable after construction; callers must Close it to release the
// temporary file.
type KeyInfo struct {
	url         string
	path        string
	keyID       string
	userID      string
	fingerprint string
	pkt         []byte
	tempPath    string
}

// NewKeyInfo resolves keyURL into a KeyInfo.
//
// Local paths and file:// URLs are read in place. Any other URL scheme is
// treated as remote: the key is fetched through d into a temporary file
// owned by the returned KeyInfo. Download failures are fatal; retries, if
// any, are the downloader's concern.
//
// Identity metadata comes from x, one entry per key found in the file, with
// the last entry winning. That matches single-key armored files; files with
// multiple keys are not disambiguated. A nil x uses OpenPGPExtractor.
//
// The resolved file must contain exactly one armored public key, otherwise
// a *KeyImportError carrying keyURL is returned. The temporary file is
// removed on every construction failure.
func NewKeyInfo(ctx context.Context, keyURL string, d download.Downloader, x Extractor) (*KeyInfo, error) {
	if x == nil {
		x = OpenPGPExtractor{}
	}

	k := &KeyInfo{url: keyURL}
	ok := false
	defer func() {
		if !ok {
			_ = k.Close()
		}
	}()

	switch {
	case strings.HasPrefix(keyURL, "file://"):
		k.path = strings.TrimPrefix(keyURL, "file://")
	case strings.Contains(keyURL, "://"):
		if d == nil {
			return nil, fmt.Errorf("gpg: no downloader for remote key %q", keyURL)
		}
		tmp, err := os.CreateTemp("", "pkgtrust-key-*")
		if err != nil {
			return nil, fmt.Errorf("gpg: create temp key file: %w", err)
		}
		k.tempPath = tmp.Name()
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("gpg: create temp key file: %w", err)
		}
		if err := d.Download(ctx, keyURL, k.tempPath, download.Options{FailFast: true, Resume: true}); err != nil {
			return nil, err
		}
		k.path = k.tempPath
	default:
		k.path = keyURL
	}

	f, err := os.Open(k.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keys, err := x.Extract(f)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		k.keyID = key.ID
		k.userID = key.UserID
		k.fingerprint = key.Fingerprint
	}

	pkt, err := readArmoredPublicKey(keyURL, k.path)
	if err != nil {
		return nil, err
	}
	k.pkt = pkt

	ok = true
	return k, nil
}

// readArmoredPublicKey reads path as a single armored public key and returns
// the binary packet bytes.
func readArmoredPublicKey(keyURL, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	block, err := armor.Decode(f)
	if err != nil {
		return nil, &KeyImportError{URL: keyURL, Err: ErrNotArmoredPublicKey}
	}
	if block.Type != openpgp.PublicKeyType {
		return nil, &KeyImportError{URL: keyURL, Err: ErrNotArmoredPublicKey}
	}
	pkt, err := io.ReadAll(block.Body)
	if err != nil {
		return nil, &KeyImportError{URL: keyURL, Err: err}
	}
	if len(pkt) == 0 {
		return nil, &KeyImportError{URL: keyURL, Err: ErrNotArmoredPublicKey}
	}
	return pkt, nil
}

// URL returns the original reference string.
func (k *KeyInfo) URL() string { return k.url }

// Path returns the resolved local file location.
func (k *KeyInfo) Path() string { return k.path }

// KeyID returns the key's identifier.
func (k *KeyInfo) KeyID() string { return k.keyID }

// UserID returns the key's display identity.
func (k *KeyInfo) UserID() string { return k.userID }

// Fingerprint returns the key's canonical identity string.
func (k *KeyInfo) Fingerprint() string { return k.fingerprint }

// Pkt returns the binary public-key packet. The slice is owned by the
// KeyInfo and must not be modified.
func (k *KeyInfo) Pkt() []byte { return k.pkt }

// PktLen returns the packet length in bytes.
func (k *KeyInfo) PktLen() int { return len(k.pkt) }

// ShortKeyID returns the last 8 characters of the key id, or the whole id
// when shorter. Trust-database records are matched on this value.
func (k *KeyInfo) ShortKeyID() string {
	if len(k.keyID) > 8 {
		return k.keyID[len(k.keyID)-8:]
	}
	return k.keyID
}

// Close removes the temporary file backing a remote key, if any. Close is
// idempotent and safe on locally-resolved keys.
func (k *KeyInfo) Close() error {
	if k.tempPath == "" {
		return nil
	}
	path := k.tempPath
	k.tempPath = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
