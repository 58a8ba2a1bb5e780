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

import "strings"

// LogClassifier turns the diagnostic log of a failed verification into a
// CheckResult. The rules encode a contract with the engine's message text,
// so implementations are kept behind this interface and tested against
// literal log fixtures.
type LogClassifier interface {
	Classify(pkgPath string, lines []string) CheckResult
}

// SuffixClassifier classifies by the finding suffix of each log line.
//
// The engine's verification entry point reports a single status code, which
// cannot distinguish a missing key from an untrusted key or an unsigned
// package. The per-finding log lines can. Example log for a signed package
// whose public key is absent from the trust database:
//
//	/path/to/dummy-signed-1.0.1-0.x86_64.rpm:
//	    Header V4 EdDSA/SHA512 Signature, key ID 773dd1ba: NOKEY
//	    Header RSA signature: NOTFOUND
//	    Header SHA256 digest: OK
//	    Payload SHA256 digest: OK
//	    RSA signature: NOTFOUND
//	    MD5 digest: OK
type SuffixClassifier struct{}

// Classify applies the rules in order:
//
//  1. Lines starting with the package path are informational headers; skip.
//  2. Any line containing ": BAD" is an active cryptographic failure and
//     classifies as CheckFailed immediately, overriding everything else.
//  3. ": NOKEY", ": NOTTRUSTED" and ": NOTFOUND" suffixes accumulate flags.
//  4. A line ending in none of the recognized suffixes (including ": OK")
//     classifies as CheckFailed immediately; an unreadable finding must not
//     be treated as harmless.
//  5. Precedence across accumulated flags: not trusted beats missing key
//     beats not signed. An untrusted key is a more specific failure than a
//     merely missing one, which in turn beats simply unsigned.
//  6. Nothing recognized but the engine still reported non-success:
//     CheckFailed.
func (SuffixClassifier) Classify(pkgPath string, lines []string) CheckResult {
	var missingKey, notTrusted, notSigned bool
	for _, line := range lines {
		if strings.HasPrefix(line, pkgPath) {
			continue
		}
		if strings.Contains(line, ": BAD") {
			return CheckFailed
		}
		switch {
		case strings.HasSuffix(line, ": NOKEY"):
			missingKey = true
		case strings.HasSuffix(line, ": NOTTRUSTED"):
			notTrusted = true
		case strings.HasSuffix(line, ": NOTFOUND"):
			notSigned = true
		case strings.HasSuffix(line, ": OK"):
			// a passing finding carries no information about the failure
		default:
			return CheckFailed
		}
	}

	switch {
	case notTrusted:
		return CheckFailedNotTrusted
	case missingKey:
		return CheckFailedKeyMissing
	case notSigned:
		return CheckFailedNotSigned
	}
	return CheckFailed
}
