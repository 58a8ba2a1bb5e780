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

package trust

import "fmt"

// SignatureCheckError reports that a verification session could not be
// configured. It is fatal to the enclosing operation; verification outcomes
// themselves are returned as CheckResult values, never as errors.
type SignatureCheckError struct {
	Root string
	Err  error
}

// Error implements the error interface.
func (e *SignatureCheckError) Error() string {
	return fmt.Sprintf("trust: failed to set install root %q: %v", e.Root, e.Err)
}

// Unwrap returns the underlying error.
func (e *SignatureCheckError) Unwrap() error {
	return e.Err
}
