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

// Package rpm defines the contract with the external verification engine.
//
// The engine is treated as an opaque oracle: it verifies package signatures,
// imports public keys into its own trust database, and reports everything it
// knows through a process-global diagnostic log stream. This package models
// that surface (sessions, log mask, log callback) and provides scoped guards
// for capturing the log stream safely. Concrete engines live in subpackages
// (see rpmexec) or behind test mocks.
package rpm

// LogLevel is the priority of a single engine log record. Levels mirror the
// engine's syslog-style priorities, most severe first.
type LogLevel int

const (
	LevelEmerg LogLevel = iota
	LevelAlert
	LevelCrit
	LevelErr
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

// LogMask selects which log levels the engine delivers to its callback.
// Bit n corresponds to LogLevel n.
type LogMask int

// MaskAll delivers every level, including debug.
const MaskAll LogMask = 0xff

// UpTo returns a mask delivering the given level and everything more severe.
func UpTo(level LogLevel) LogMask {
	return LogMask(1<<(uint(level)+1) - 1)
}

// Allows reports whether records at the given level pass the mask.
func (m LogMask) Allows(level LogLevel) bool {
	return m&(1<<uint(level)) != 0
}

// LogRecord is one diagnostic message emitted by the engine. Message carries
// no trailing newline.
type LogRecord struct {
	Level   LogLevel
	Message string
}

// LogCallback receives engine log records that pass the current mask.
type LogCallback func(rec LogRecord)

// VerifyLevel selects how strict a signature verification must be.
type VerifyLevel int

const (
	// VerifyDigest only requires digests to match.
	VerifyDigest VerifyLevel = iota

	// VerifySignature requires a valid cryptographic signature.
	VerifySignature
)

// PubkeyRecordName is the record name under which the engine's trust
// database stores imported public keys.
const PubkeyRecordName = "gpg-pubkey"

// KeyRecord is one trusted-key record from the engine's trust database.
// Version holds the short key id of the imported public key.
type KeyRecord struct {
	Name    string
	Version string
	Release string
}

// KeyIterator walks trust-database records of one record name.
type KeyIterator interface {
	// Next returns the next record, or ok=false when exhausted.
	Next() (rec *KeyRecord, ok bool)

	// Close releases the iterator.
	Close() error
}

// Session is per-operation engine state. Sessions are cheap, single-use and
// must never be shared across operations: create one, use it for exactly one
// verification or key operation, then Close it.
type Session interface {
	// SetRootDir applies the install root to the session. It fails if the
	// root cannot be applied.
	SetRootDir(root string) error

	// SetVerifyLevel sets the strictness of subsequent Verify calls.
	SetVerifyLevel(level VerifyLevel)

	// Verify checks the signatures of the given package files. A nil return
	// means every package verified cleanly. A non-nil return only signals
	// non-success; the reason must be inferred from the captured log stream.
	Verify(paths []string) error

	// ImportKey imports a binary public-key packet into the engine's trust
	// database.
	ImportKey(pkt []byte) error

	// Keys opens an iterator over trust-database records with the given
	// record name (normally PubkeyRecordName).
	Keys(name string) (KeyIterator, error)

	// Close releases the session.
	Close() error
}

// Engine is the external verification engine. SetLogMask and SetLogCallback
// mutate process-global engine state; callers must serialize access through
// the guards in this package rather than calling them directly.
type Engine interface {
	// NewSession creates fresh per-operation engine state.
	NewSession() Session

	// SetLogMask replaces the global log mask and returns the previous one.
	SetLogMask(mask LogMask) LogMask

	// SetLogCallback replaces the global log callback and returns the
	// previous one. A nil callback discards records.
	SetLogCallback(cb LogCallback) LogCallback
}
