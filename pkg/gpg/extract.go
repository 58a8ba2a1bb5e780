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

package gpg

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/crypto/openpgp"
)

// Key is the identity metadata of one public key found in a key file.
type Key struct {
	ID          string
	UserID      string
	Fingerprint string
}

// Extractor parses raw key bytes into identity metadata. Content that
// contains no OpenPGP keys yields an empty slice, not an error.
type Extractor interface {
	Extract(r io.Reader) ([]Key, error)
}

// OpenPGPExtractor reads armored or binary keyrings.
type OpenPGPExtractor struct{}

// Extract returns one Key per entity in the keyring, in keyring order.
func (OpenPGPExtractor) Extract(r io.Reader) ([]Key, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gpg: read key material: %w", err)
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		// not a keyring at all
		return nil, nil
	}

	keys := make([]Key, 0, len(entities))
	for _, entity := range entities {
		keys = append(keys, entityKey(entity))
	}
	return keys, nil
}

// entityKey extracts identity metadata from one entity, preferring the
// signing subkey over the primary key, as trust decisions are made against
// the key that actually signs packages.
func entityKey(entity *openpgp.Entity) Key {
	pub := entity.PrimaryKey
	for _, subkey := range entity.Subkeys {
		if subkey.PublicKey == nil || subkey.Sig == nil {
			continue
		}
		if subkey.Sig.FlagsValid && subkey.Sig.FlagSign {
			pub = subkey.PublicKey
			break
		}
	}

	key := Key{
		ID:          pub.KeyIdString(),
		Fingerprint: fmt.Sprintf("%X", pub.Fingerprint),
	}
	for _, ident := range entity.Identities {
		if key.UserID == "" {
			key.UserID = ident.Name
		}
		if ident.SelfSignature != nil && ident.SelfSignature.IsPrimaryId != nil &&
			*ident.SelfSignature.IsPrimaryId {
			key.UserID = ident.Name
			break
		}
	}
	return key
}
