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
	"errors"
	"fmt"
)

// ErrNotArmoredPublicKey indicates the resolved key file is not exactly one
// armored public key.
var ErrNotArmoredPublicKey = errors.New("gpg: key is not an armored public key")

// KeyImportError reports that a key reference could not be turned into an
// importable public key, or that the engine rejected its import. URL is the
// original reference string the caller supplied.
type KeyImportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *KeyImportError) Error() string {
	return fmt.Sprintf("gpg: key %q: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *KeyImportError) Unwrap() error {
	return e.Err
}
