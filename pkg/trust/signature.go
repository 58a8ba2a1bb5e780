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

// Package trust decides whether installable packages are trustworthy: it
// verifies package signatures through the external engine, classifies the
// engine's diagnostic output into a precise trust decision, and manages the
// set of trusted public keys in the engine's trust database.
package trust

import (
	"context"
	"strings"
	"time"

	"github.com/jeremyhahn/go-pkgtrust/pkg/gpg"
	"github.com/jeremyhahn/go-pkgtrust/pkg/history"
	"github.com/jeremyhahn/go-pkgtrust/pkg/logging"
	"github.com/jeremyhahn/go-pkgtrust/pkg/metrics"
	"github.com/jeremyhahn/go-pkgtrust/pkg/repo"
	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm"
)

// Config holds the trust-relevant configuration values.
type Config struct {
	// LocalpkgGPGCheck requires signature verification for packages
	// supplied on the command line.
	LocalpkgGPGCheck bool

	// InstallRoot is applied to every verification session.
	InstallRoot string
}

// Signature verifies package signatures and manages trusted keys. Every
// operation creates a fresh engine session; sessions are never reused, so no
// stale engine state leaks between calls.
type Signature struct {
	engine     rpm.Engine
	cfg        Config
	log        *logging.Logger
	recorder   history.Recorder
	classifier LogClassifier
}

// Option configures a Signature.
type Option func(*Signature)

// WithLogger sets the logger used for forwarded engine output.
func WithLogger(log *logging.Logger) Option {
	return func(s *Signature) { s.log = log }
}

// WithRecorder enables history recording of checks and imports. Recording
// failures are logged and never affect the trust decision.
func WithRecorder(r history.Recorder) Option {
	return func(s *Signature) { s.recorder = r }
}

// WithClassifier overrides the log classifier.
func WithClassifier(c LogClassifier) Option {
	return func(s *Signature) { s.classifier = c }
}

// NewSignature creates a Signature service over the given engine.
func NewSignature(engine rpm.Engine, cfg Config, opts ...Option) *Signature {
	s := &Signature{
		engine:     engine,
		cfg:        cfg,
		classifier: SuffixClassifier{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.DefaultLogger()
	}
	return s
}

// checkRequired is the policy gate: signature checking can be switched off
// globally for command-line packages, or per repository.
func (s *Signature) checkRequired(pkg repo.Package) bool {
	r := pkg.Repo
	if r == nil || r.Type == repo.TypeCommandline {
		return s.cfg.LocalpkgGPGCheck
	}
	return r.Config.GPGCheck
}

// newSession creates fresh per-operation engine state with the configured
// install root applied.
func (s *Signature) newSession() (rpm.Session, error) {
	session := s.engine.NewSession()
	if err := session.SetRootDir(s.cfg.InstallRoot); err != nil {
		session.Close()
		return nil, &SignatureCheckError{Root: s.cfg.InstallRoot, Err: err}
	}
	return session, nil
}

// CheckPackageSignature verifies one package and returns exactly one
// CheckResult. A non-OK result is a normal return value; the only error
// condition is a session that cannot be configured.
func (s *Signature) CheckPackageSignature(ctx context.Context, pkg repo.Package) (CheckResult, error) {
	if !s.checkRequired(pkg) {
		return CheckOK, nil
	}

	start := time.Now()
	result, err := s.verify(pkg)
	if err != nil {
		metrics.RecordCheck("error", time.Since(start).Seconds())
		return result, err
	}
	metrics.RecordCheck(result.String(), time.Since(start).Seconds())

	s.record(ctx, &history.Event{
		Action:      history.ActionCheck,
		PackagePath: pkg.Path,
		Result:      result.String(),
	})
	return result, nil
}

// verify runs the engine's single verification entry point under an
// exclusive log capture and classifies the outcome. The engine's status
// alone cannot distinguish the failure classes; the captured log can.
func (s *Signature) verify(pkg repo.Package) (CheckResult, error) {
	capture := rpm.NewLogCapture(s.engine)
	defer capture.Close()

	session, err := s.newSession()
	if err != nil {
		return CheckFailed, err
	}
	defer session.Close()

	session.SetVerifyLevel(rpm.VerifySignature)
	if err := session.Verify([]string{pkg.Path}); err == nil {
		// engine reported success; the captured log is discarded
		return CheckOK, nil
	}

	return s.classifier.Classify(pkg.Path, capture.Lines()), nil
}

// KeyPresent reports whether the key is already in the engine's trust
// database.
func (s *Signature) KeyPresent(key *gpg.KeyInfo) (bool, error) {
	guard := rpm.NewLogGuard(s.engine, s.log)
	defer guard.Close()

	session, err := s.newSession()
	if err != nil {
		return false, err
	}
	defer session.Close()

	metrics.RecordLookup()
	return lookupKey(session, key)
}

// ImportKey imports the key into the engine's trust database unless it is
// already present. It returns true when a new key was imported, false when
// the key was already trusted.
func (s *Signature) ImportKey(ctx context.Context, key *gpg.KeyInfo) (bool, error) {
	guard := rpm.NewLogGuard(s.engine, s.log)
	defer guard.Close()

	session, err := s.newSession()
	if err != nil {
		return false, err
	}
	defer session.Close()

	present, err := lookupKey(session, key)
	if err != nil {
		return false, err
	}
	if present {
		metrics.RecordImport(metrics.StatusAlreadyTrusted)
		return false, nil
	}

	if err := session.ImportKey(key.Pkt()); err != nil {
		metrics.RecordImport(metrics.StatusError)
		return false, &gpg.KeyImportError{URL: key.URL(), Err: err}
	}

	metrics.RecordImport(metrics.StatusImported)
	s.record(ctx, &history.Event{
		Action: history.ActionImport,
		KeyID:  key.KeyID(),
		Result: metrics.StatusImported,
	})
	return true, nil
}

// lookupKey scans the trust database's public-key records for one whose
// version matches the candidate's short key id. Record versions are
// lower-case hex while extracted key ids are upper-case, so the comparison
// is case-insensitive.
func lookupKey(session rpm.Session, key *gpg.KeyInfo) (bool, error) {
	it, err := session.Keys(rpm.PubkeyRecordName)
	if err != nil {
		return false, err
	}
	defer it.Close()

	shortID := key.ShortKeyID()
	for rec, ok := it.Next(); ok; rec, ok = it.Next() {
		if strings.EqualFold(rec.Version, shortID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Signature) record(ctx context.Context, event *history.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.log.Errorf("trust: record history event: %v", err)
	}
}
