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

package rpmexec

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm"
	"github.com/jmgilman/go/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records invocations and serves canned results.
type fakeExecutor struct {
	RunFunc func(args ...string) (*exec.Result, error)
	Calls   [][]string
}

func (f *fakeExecutor) Run(args ...string) (*exec.Result, error) {
	f.Calls = append(f.Calls, args)
	if f.RunFunc != nil {
		return f.RunFunc(args...)
	}
	return &exec.Result{}, nil
}

func (f *fakeExecutor) WithEnv(env map[string]string) exec.Executor   { return f }
func (f *fakeExecutor) WithDir(dir string) exec.Executor              { return f }
func (f *fakeExecutor) WithContext(ctx context.Context) exec.Executor { return f }
func (f *fakeExecutor) WithDisableColors() exec.Executor              { return f }
func (f *fakeExecutor) WithTimeout(timeout string) exec.Executor      { return f }
func (f *fakeExecutor) WithInheritEnv() exec.Executor                 { return f }
func (f *fakeExecutor) WithStdout(w io.Writer) exec.Executor          { return f }
func (f *fakeExecutor) WithStderr(w io.Writer) exec.Executor          { return f }
func (f *fakeExecutor) WithPassthrough() exec.Executor                { return f }
func (f *fakeExecutor) Clone() exec.Executor                          { return f }

func newTestEngine(fake *fakeExecutor) *Engine {
	return New(WithExecutor(fake))
}

func TestVerifyEmitsOutputLines(t *testing.T) {
	fake := &fakeExecutor{
		RunFunc: func(args ...string) (*exec.Result, error) {
			return &exec.Result{
				Combined: "/tmp/pkg.rpm:\n    Header V4 RSA/SHA256 Signature, key ID 1234abcd: OK\n",
			}, nil
		},
	}
	engine := newTestEngine(fake)

	var got []rpm.LogRecord
	engine.SetLogCallback(func(rec rpm.LogRecord) {
		got = append(got, rec)
	})
	engine.SetLogMask(rpm.UpTo(rpm.LevelInfo))

	session := engine.NewSession()
	defer session.Close()
	session.SetVerifyLevel(rpm.VerifySignature)

	err := session.Verify([]string{"/tmp/pkg.rpm"})
	require.NoError(t, err)

	require.Len(t, fake.Calls, 1)
	assert.Equal(t,
		[]string{"rpmkeys", "--checksig", "--verbose", "/tmp/pkg.rpm"},
		fake.Calls[0])

	require.Len(t, got, 2)
	assert.Equal(t, "/tmp/pkg.rpm:", got[0].Message)
	assert.Equal(t, rpm.LevelInfo, got[0].Level)
}

func TestVerifyDigestOnlyAddsNosignature(t *testing.T) {
	fake := &fakeExecutor{}
	engine := newTestEngine(fake)

	session := engine.NewSession()
	defer session.Close()
	session.SetVerifyLevel(rpm.VerifyDigest)

	require.NoError(t, session.Verify([]string{"/tmp/pkg.rpm"}))
	require.Len(t, fake.Calls, 1)
	assert.Contains(t, fake.Calls[0], "--nosignature")
}

func TestVerifyFailureStillEmitsOutput(t *testing.T) {
	fake := &fakeExecutor{
		RunFunc: func(args ...string) (*exec.Result, error) {
			return &exec.Result{
				Combined: "    V4 RSA/SHA256 Signature, key ID 1234abcd: NOKEY\n",
				ExitCode: 1,
			}, fmt.Errorf("exit status 1")
		},
	}
	engine := newTestEngine(fake)

	var lines []string
	engine.SetLogCallback(func(rec rpm.LogRecord) {
		lines = append(lines, rec.Message)
	})
	engine.SetLogMask(rpm.UpTo(rpm.LevelInfo))

	session := engine.NewSession()
	defer session.Close()

	err := session.Verify([]string{"/tmp/pkg.rpm"})
	require.Error(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "NOKEY")
}

func TestVerifyHonorsRootDir(t *testing.T) {
	fake := &fakeExecutor{}
	engine := newTestEngine(fake)

	session := engine.NewSession()
	defer session.Close()
	require.NoError(t, session.SetRootDir(t.TempDir()))

	require.NoError(t, session.Verify([]string{"/tmp/pkg.rpm"}))
	require.Len(t, fake.Calls, 1)
	assert.Contains(t, fake.Calls[0], "--root")
}

func TestSetRootDir(t *testing.T) {
	engine := newTestEngine(&fakeExecutor{})
	session := engine.NewSession()
	defer session.Close()

	assert.NoError(t, session.SetRootDir("/"))
	assert.NoError(t, session.SetRootDir(""))
	assert.Error(t, session.SetRootDir("relative/path"))
	assert.Error(t, session.SetRootDir("/does/not/exist"))
}

func TestImportKeyRejectsEmptyPacket(t *testing.T) {
	engine := newTestEngine(&fakeExecutor{})
	session := engine.NewSession()
	defer session.Close()

	assert.Error(t, session.ImportKey(nil))
}

func TestImportKeyRunsRpmkeysImport(t *testing.T) {
	fake := &fakeExecutor{}
	engine := newTestEngine(fake)

	session := engine.NewSession()
	defer session.Close()

	require.NoError(t, session.ImportKey([]byte{0x99, 0x01}))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, "rpmkeys", fake.Calls[0][0])
	assert.Equal(t, "--import", fake.Calls[0][1])
}

func TestKeysParsesRecords(t *testing.T) {
	fake := &fakeExecutor{
		RunFunc: func(args ...string) (*exec.Result, error) {
			return &exec.Result{
				Stdout: "gpg-pubkey\t1234abcd\t5f8a1b2c\ngpg-pubkey\tdeadbeef\t60001111\n",
			}, nil
		},
	}
	engine := newTestEngine(fake)

	session := engine.NewSession()
	defer session.Close()

	iter, err := session.Keys(rpm.PubkeyRecordName)
	require.NoError(t, err)
	defer iter.Close()

	rec, ok := iter.Next()
	require.True(t, ok)
	assert.Equal(t, "gpg-pubkey", rec.Name)
	assert.Equal(t, "1234abcd", rec.Version)
	assert.Equal(t, "5f8a1b2c", rec.Release)

	rec, ok = iter.Next()
	require.True(t, ok)
	assert.Equal(t, "deadbeef", rec.Version)

	_, ok = iter.Next()
	assert.False(t, ok)
}

func TestKeysNoRecordsInstalled(t *testing.T) {
	fake := &fakeExecutor{
		RunFunc: func(args ...string) (*exec.Result, error) {
			return &exec.Result{
				Combined: "package gpg-pubkey is not installed\n",
				ExitCode: 1,
			}, fmt.Errorf("exit status 1")
		},
	}
	engine := newTestEngine(fake)

	session := engine.NewSession()
	defer session.Close()

	iter, err := session.Keys(rpm.PubkeyRecordName)
	require.NoError(t, err)
	defer iter.Close()

	_, ok := iter.Next()
	assert.False(t, ok)
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	engine := newTestEngine(&fakeExecutor{})
	session := engine.NewSession()
	require.NoError(t, session.Close())

	assert.Error(t, session.Verify([]string{"/tmp/pkg.rpm"}))
	assert.Error(t, session.ImportKey([]byte{0x99}))
	assert.Error(t, session.SetRootDir("/tmp"))
	_, err := session.Keys(rpm.PubkeyRecordName)
	assert.Error(t, err)
}

func TestSetLogMaskReturnsPrevious(t *testing.T) {
	engine := newTestEngine(&fakeExecutor{})

	prev := engine.SetLogMask(rpm.MaskAll)
	assert.Equal(t, rpm.UpTo(rpm.LevelWarning), prev)
	assert.Equal(t, rpm.MaskAll, engine.SetLogMask(prev))
}
