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

// Package rpmexec implements the rpm.Engine contract by executing the host's
// rpm tooling (rpmkeys, rpm). Every line the tools print is routed through
// the engine log callback, so the log-capture guards and the signature
// classifier work against this engine exactly as they would against an
// in-process binding.
package rpmexec

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm"
	"github.com/jmgilman/go/exec"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

// Engine shells out to rpmkeys and rpm. It implements rpm.Engine.
type Engine struct {
	rpmkeysBin string
	rpmBin     string
	executor   exec.Executor

	mu   sync.Mutex
	mask rpm.LogMask
	cb   rpm.LogCallback
}

// Option configures an Engine.
type Option func(*Engine)

// WithRpmkeysBin overrides the rpmkeys binary path.
func WithRpmkeysBin(path string) Option {
	return func(e *Engine) { e.rpmkeysBin = path }
}

// WithRPMBin overrides the rpm binary path.
func WithRPMBin(path string) Option {
	return func(e *Engine) { e.rpmBin = path }
}

// WithExecutor overrides the command executor, primarily for tests.
func WithExecutor(executor exec.Executor) Option {
	return func(e *Engine) { e.executor = executor }
}

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		rpmkeysBin: "rpmkeys",
		rpmBin:     "rpm",
		mask:       rpm.UpTo(rpm.LevelWarning),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.executor == nil {
		e.executor = exec.New(exec.WithInheritEnv(), exec.WithDisableColors())
	}
	return e
}

// NewSession creates fresh per-operation state.
func (e *Engine) NewSession() rpm.Session {
	return &session{engine: e}
}

// SetLogMask replaces the mask and returns the previous one.
func (e *Engine) SetLogMask(mask rpm.LogMask) rpm.LogMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.mask
	e.mask = mask
	return old
}

// SetLogCallback replaces the callback and returns the previous one.
func (e *Engine) SetLogCallback(cb rpm.LogCallback) rpm.LogCallback {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.cb
	e.cb = cb
	return old
}

// emit routes one output line through the current callback, honoring the
// current mask.
func (e *Engine) emit(level rpm.LogLevel, msg string) {
	e.mu.Lock()
	cb := e.cb
	mask := e.mask
	e.mu.Unlock()
	if cb != nil && mask.Allows(level) {
		cb(rpm.LogRecord{Level: level, Message: msg})
	}
}

// emitLines splits combined tool output into lines and emits each one.
func (e *Engine) emitLines(level rpm.LogLevel, combined string) {
	for _, line := range strings.Split(combined, "\n") {
		if line == "" {
			continue
		}
		e.emit(level, line)
	}
}

type session struct {
	engine      *Engine
	rootDir     string
	verifyLevel rpm.VerifyLevel
	closed      bool
}

var errSessionClosed = fmt.Errorf("rpmexec: session closed")

func (s *session) SetRootDir(root string) error {
	if s.closed {
		return errSessionClosed
	}
	if root == "" || root == "/" {
		s.rootDir = ""
		return nil
	}
	if !strings.HasPrefix(root, "/") {
		return fmt.Errorf("rpmexec: install root %q is not absolute", root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("rpmexec: install root %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("rpmexec: install root %q is not a directory", root)
	}
	s.rootDir = root
	return nil
}

func (s *session) SetVerifyLevel(level rpm.VerifyLevel) {
	s.verifyLevel = level
}

func (s *session) rootArgs() []string {
	if s.rootDir == "" {
		return nil
	}
	return []string{"--root", s.rootDir}
}

// Verify runs rpmkeys --checksig against the packages. The tool prints one
// finding per signature/digest; --verbose is required so the per-finding
// lines appear instead of a single summary.
func (s *session) Verify(paths []string) error {
	if s.closed {
		return errSessionClosed
	}
	args := []string{s.engine.rpmkeysBin, "--checksig", "--verbose"}
	if s.verifyLevel == rpm.VerifyDigest {
		args = append(args, "--nosignature")
	}
	args = append(args, s.rootArgs()...)
	args = append(args, paths...)

	result, err := s.engine.executor.Run(args...)
	if result != nil {
		s.engine.emitLines(rpm.LevelInfo, result.Combined)
	}
	if err != nil {
		return fmt.Errorf("rpmexec: checksig: %w", err)
	}
	return nil
}

// ImportKey re-armors the binary packet and feeds it to rpmkeys --import.
func (s *session) ImportKey(pkt []byte) error {
	if s.closed {
		return errSessionClosed
	}
	if len(pkt) == 0 {
		return fmt.Errorf("rpmexec: empty public key packet")
	}

	tmp, err := os.CreateTemp("", "pkgtrust-pubkey-*.asc")
	if err != nil {
		return fmt.Errorf("rpmexec: create temp key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w, err := armor.Encode(tmp, openpgp.PublicKeyType, nil)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("rpmexec: armor public key: %w", err)
	}
	if _, err := w.Write(pkt); err != nil {
		w.Close()
		tmp.Close()
		return fmt.Errorf("rpmexec: armor public key: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("rpmexec: armor public key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("rpmexec: write temp key file: %w", err)
	}

	args := []string{s.engine.rpmkeysBin, "--import"}
	args = append(args, s.rootArgs()...)
	args = append(args, tmp.Name())

	result, err := s.engine.executor.Run(args...)
	if result != nil {
		s.engine.emitLines(rpm.LevelInfo, result.Combined)
	}
	if err != nil {
		return fmt.Errorf("rpmexec: import key: %w", err)
	}
	return nil
}

// Keys queries the trust database for records of the given name. A query
// that matches nothing is an empty iterator, not an error.
func (s *session) Keys(name string) (rpm.KeyIterator, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	args := []string{s.engine.rpmBin, "-q", "--qf", "%{NAME}\t%{VERSION}\t%{RELEASE}\n"}
	args = append(args, s.rootArgs()...)
	args = append(args, name)

	result, err := s.engine.executor.Run(args...)
	if err != nil {
		if result != nil && strings.Contains(result.Combined, "is not installed") {
			return &sliceIterator{}, nil
		}
		return nil, fmt.Errorf("rpmexec: query %s records: %w", name, err)
	}

	var recs []*rpm.KeyRecord
	for _, line := range strings.Split(result.Stdout, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		rec := &rpm.KeyRecord{Name: fields[0]}
		if len(fields) > 1 {
			rec.Version = fields[1]
		}
		if len(fields) > 2 {
			rec.Release = fields[2]
		}
		recs = append(recs, rec)
	}
	return &sliceIterator{recs: recs}, nil
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

type sliceIterator struct {
	recs []*rpm.KeyRecord
	next int
}

func (it *sliceIterator) Next() (*rpm.KeyRecord, bool) {
	if it.next >= len(it.recs) {
		return nil, false
	}
	rec := it.recs[it.next]
	it.next++
	return rec, true
}

func (it *sliceIterator) Close() error {
	it.recs = nil
	return nil
}
