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

// CheckResult is the trust decision for one package. Exactly one value is
// produced per verification attempt. Failure variants are normal return
// values, never errors, so callers can decide remediation (for example,
// offering to import a missing key).
type CheckResult int

const (
	// CheckOK means the package signature verified cleanly, or policy did
	// not require verification.
	CheckOK CheckResult = iota

	// CheckFailed means a cryptographic check actively failed, or the
	// verification log could not be read.
	CheckFailed

	// CheckFailedKeyMissing means the signing key is not in the trust
	// database.
	CheckFailedKeyMissing

	// CheckFailedNotTrusted means the signing key is present but not
	// trusted.
	CheckFailedNotTrusted

	// CheckFailedNotSigned means the package carries no signature.
	CheckFailedNotSigned
)

// String returns a short machine-friendly name for the result.
func (r CheckResult) String() string {
	switch r {
	case CheckOK:
		return "ok"
	case CheckFailed:
		return "failed"
	case CheckFailedKeyMissing:
		return "key_missing"
	case CheckFailedNotTrusted:
		return "not_trusted"
	case CheckFailedNotSigned:
		return "not_signed"
	default:
		return "unknown"
	}
}

// OK reports whether the check passed.
func (r CheckResult) OK() bool {
	return r == CheckOK
}
