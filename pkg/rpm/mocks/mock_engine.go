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

// Package mocks provides mock implementations of the rpm engine contract for
// testing. The mocks store scripted behavior in exported fields and track
// every call made against them.
package mocks

import (
	"sync"

	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm"
)

// MockEngine is a mock implementation of rpm.Engine. Log mask and callback
// behave like the real engine's process-global state: records emitted via
// Emit are delivered to the current callback only when the mask allows their
// level.
type MockEngine struct {
	mu   sync.Mutex
	mask rpm.LogMask
	cb   rpm.LogCallback

	// Configurable behavior
	NewSessionFunc func() rpm.Session

	// Call tracking
	SetLogMaskCalls     []rpm.LogMask
	SetLogCallbackCalls int
	Sessions            []*MockSession
}

// NewMockEngine creates a MockEngine with default behavior. The initial mask
// suppresses informational records, as a freshly initialized engine would.
func NewMockEngine() *MockEngine {
	return &MockEngine{mask: rpm.UpTo(rpm.LevelWarning)}
}

// NewSession returns a new MockSession bound to this engine.
func (e *MockEngine) NewSession() rpm.Session {
	if e.NewSessionFunc != nil {
		return e.NewSessionFunc()
	}
	s := &MockSession{engine: e}
	e.mu.Lock()
	e.Sessions = append(e.Sessions, s)
	e.mu.Unlock()
	return s
}

// SetLogMask replaces the mask and returns the previous one.
func (e *MockEngine) SetLogMask(mask rpm.LogMask) rpm.LogMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SetLogMaskCalls = append(e.SetLogMaskCalls, mask)
	old := e.mask
	e.mask = mask
	return old
}

// SetLogCallback replaces the callback and returns the previous one.
func (e *MockEngine) SetLogCallback(cb rpm.LogCallback) rpm.LogCallback {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SetLogCallbackCalls++
	old := e.cb
	e.cb = cb
	return old
}

// Mask returns the current mask.
func (e *MockEngine) Mask() rpm.LogMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mask
}

// Callback returns the current callback.
func (e *MockEngine) Callback() rpm.LogCallback {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cb
}

// Emit delivers a record to the current callback if the mask allows its
// level, mimicking the engine's own log routing.
func (e *MockEngine) Emit(level rpm.LogLevel, msg string) {
	e.mu.Lock()
	cb := e.cb
	mask := e.mask
	e.mu.Unlock()
	if cb != nil && mask.Allows(level) {
		cb(rpm.LogRecord{Level: level, Message: msg})
	}
}

// NewMockSession creates a MockSession bound to the given engine without
// registering it, so tests can preconfigure a session and hand it out via
// NewSessionFunc.
func NewMockSession(engine *MockEngine) *MockSession {
	return &MockSession{engine: engine}
}

// MockSession is a mock implementation of rpm.Session.
type MockSession struct {
	engine *MockEngine

	// Configurable behavior
	SetRootDirFunc func(root string) error
	VerifyFunc     func(paths []string) error
	ImportKeyFunc  func(pkt []byte) error
	KeysFunc       func(name string) (rpm.KeyIterator, error)

	// VerifyLog lines are emitted at info level through the engine during
	// Verify, before VerifyErr is returned.
	VerifyLog []string
	VerifyErr error

	// ImportErr is returned by ImportKey.
	ImportErr error

	// TrustedVersions are served as gpg-pubkey records by Keys.
	TrustedVersions []string

	// Call tracking
	RootDirs       []string
	VerifyLevels   []rpm.VerifyLevel
	VerifyCalls    [][]string
	ImportKeyCalls [][]byte
	KeysCalls      []string
	Closed         bool
}

// SetRootDir records the root and applies SetRootDirFunc if configured.
func (s *MockSession) SetRootDir(root string) error {
	s.RootDirs = append(s.RootDirs, root)
	if s.SetRootDirFunc != nil {
		return s.SetRootDirFunc(root)
	}
	return nil
}

// SetVerifyLevel records the requested level.
func (s *MockSession) SetVerifyLevel(level rpm.VerifyLevel) {
	s.VerifyLevels = append(s.VerifyLevels, level)
}

// Verify emits the scripted log lines through the engine and returns
// VerifyErr, or delegates to VerifyFunc if configured.
func (s *MockSession) Verify(paths []string) error {
	s.VerifyCalls = append(s.VerifyCalls, paths)
	if s.VerifyFunc != nil {
		return s.VerifyFunc(paths)
	}
	for _, line := range s.VerifyLog {
		s.engine.Emit(rpm.LevelInfo, line)
	}
	return s.VerifyErr
}

// ImportKey records the packet and returns ImportErr, or delegates to
// ImportKeyFunc if configured.
func (s *MockSession) ImportKey(pkt []byte) error {
	s.ImportKeyCalls = append(s.ImportKeyCalls, pkt)
	if s.ImportKeyFunc != nil {
		return s.ImportKeyFunc(pkt)
	}
	return s.ImportErr
}

// Keys returns an iterator over TrustedVersions, or delegates to KeysFunc if
// configured.
func (s *MockSession) Keys(name string) (rpm.KeyIterator, error) {
	s.KeysCalls = append(s.KeysCalls, name)
	if s.KeysFunc != nil {
		return s.KeysFunc(name)
	}
	recs := make([]*rpm.KeyRecord, 0, len(s.TrustedVersions))
	for _, v := range s.TrustedVersions {
		recs = append(recs, &rpm.KeyRecord{Name: rpm.PubkeyRecordName, Version: v})
	}
	return &SliceIterator{Records: recs}, nil
}

// Close marks the session closed.
func (s *MockSession) Close() error {
	s.Closed = true
	return nil
}

// SliceIterator is a rpm.KeyIterator backed by a slice of records.
type SliceIterator struct {
	Records []*rpm.KeyRecord
	next    int
	closed  bool
}

// Next returns the next record until the slice is exhausted.
func (it *SliceIterator) Next() (*rpm.KeyRecord, bool) {
	if it.closed || it.next >= len(it.Records) {
		return nil, false
	}
	rec := it.Records[it.next]
	it.next++
	return rec, true
}

// Close marks the iterator closed.
func (it *SliceIterator) Close() error {
	it.closed = true
	return nil
}
