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

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-pkgtrust/pkg/gpg"
	"github.com/jeremyhahn/go-pkgtrust/pkg/history"
	"github.com/jeremyhahn/go-pkgtrust/pkg/repo"
	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm"
	"github.com/jeremyhahn/go-pkgtrust/pkg/rpm/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
)

// newTestKey writes a throwaway armored public key and resolves it into a
// KeyInfo.
func newTestKey(t *testing.T) *gpg.KeyInfo {
	t.Helper()
	entity, err := openpgp.NewEntity("Trust Test", "", "trust@example.com", &packet.Config{RSABits: 1024})
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(io.Discard, nil))

	path := filepath.Join(t.TempDir(), "RPM-GPG-KEY-trust")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := armor.Encode(f, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	key, err := gpg.NewKeyInfo(context.Background(), path, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { key.Close() })
	return key
}

// newTestService wires a Signature over a mock engine that hands out the
// given session.
func newTestService(cfg Config, session *mocks.MockSession, engine *mocks.MockEngine, opts ...Option) *Signature {
	engine.NewSessionFunc = func() rpm.Session { return session }
	return NewSignature(engine, cfg, opts...)
}

func repoPackage(path string, gpgcheck bool) repo.Package {
	return repo.Package{
		Path: path,
		Repo: &repo.Repo{ID: "base", Type: repo.TypeRepository, Config: repo.Config{GPGCheck: gpgcheck}},
	}
}

func TestCheckSkippedWhenRepoGPGCheckDisabled(t *testing.T) {
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	svc := newTestService(Config{}, session, engine)

	result, err := svc.CheckPackageSignature(context.Background(), repoPackage("/tmp/a.rpm", false))
	require.NoError(t, err)
	assert.Equal(t, CheckOK, result)
	// the gate short-circuits before any engine call
	assert.Empty(t, session.VerifyCalls)
	assert.Empty(t, session.RootDirs)
}

func TestCheckSkippedForCommandlinePackage(t *testing.T) {
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	svc := newTestService(Config{LocalpkgGPGCheck: false}, session, engine)

	pkg := repo.Package{Path: "/tmp/local.rpm", Repo: repo.CommandlineRepo()}
	result, err := svc.CheckPackageSignature(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, CheckOK, result)
	assert.Empty(t, session.VerifyCalls)
}

func TestCheckCommandlinePackageWithLocalCheckEnabled(t *testing.T) {
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	svc := newTestService(Config{LocalpkgGPGCheck: true}, session, engine)

	// nil repo is treated as commandline
	result, err := svc.CheckPackageSignature(context.Background(), repo.Package{Path: "/tmp/local.rpm"})
	require.NoError(t, err)
	assert.Equal(t, CheckOK, result)
	require.Len(t, session.VerifyCalls, 1)
	assert.Equal(t, []string{"/tmp/local.rpm"}, session.VerifyCalls[0])
}

func TestCheckEngineSuccessReturnsOK(t *testing.T) {
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.VerifyLog = []string{"noise that must be ignored on success"}
	svc := newTestService(Config{InstallRoot: "/"}, session, engine)

	result, err := svc.CheckPackageSignature(context.Background(), repoPackage("/tmp/a.rpm", true))
	require.NoError(t, err)
	assert.Equal(t, CheckOK, result)
	assert.Equal(t, []rpm.VerifyLevel{rpm.VerifySignature}, session.VerifyLevels)
	assert.True(t, session.Closed)
}

func TestCheckClassifiesCapturedLog(t *testing.T) {
	pkg := repoPackage("/tmp/dummy.rpm", true)
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.VerifyErr = errors.New("verification failed")
	session.VerifyLog = []string{
		"/tmp/dummy.rpm:",
		"    Header V4 EdDSA/SHA512 Signature, key ID 773dd1ba: NOKEY",
		"    Header SHA256 digest: OK",
	}
	svc := newTestService(Config{}, session, engine)

	result, err := svc.CheckPackageSignature(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, CheckFailedKeyMissing, result)
}

func TestCheckRestoresEngineLogState(t *testing.T) {
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.VerifyErr = errors.New("verification failed")
	oldMask := engine.Mask()
	svc := newTestService(Config{}, session, engine)

	_, err := svc.CheckPackageSignature(context.Background(), repoPackage("/tmp/a.rpm", true))
	require.NoError(t, err)
	assert.Equal(t, oldMask, engine.Mask())
	assert.Nil(t, engine.Callback())
}

func TestCheckSessionSetupFailure(t *testing.T) {
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.SetRootDirFunc = func(root string) error {
		return errors.New("no such directory")
	}
	svc := newTestService(Config{InstallRoot: "/sysroot"}, session, engine)

	_, err := svc.CheckPackageSignature(context.Background(), repoPackage("/tmp/a.rpm", true))
	require.Error(t, err)

	var checkErr *SignatureCheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "/sysroot", checkErr.Root)
	// log state must be restored even on the setup-error path
	assert.Nil(t, engine.Callback())
}

func TestCheckRecordsHistory(t *testing.T) {
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.VerifyErr = errors.New("verification failed")
	session.VerifyLog = []string{"    Header RSA signature: NOTFOUND"}
	svc := newTestService(Config{}, session, engine, WithRecorder(store))

	result, err := svc.CheckPackageSignature(context.Background(), repoPackage("/tmp/a.rpm", true))
	require.NoError(t, err)
	assert.Equal(t, CheckFailedNotSigned, result)

	events, err := store.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.ActionCheck, events[0].Action)
	assert.Equal(t, "/tmp/a.rpm", events[0].PackagePath)
	assert.Equal(t, "not_signed", events[0].Result)
}

func TestKeyPresent(t *testing.T) {
	key := newTestKey(t)

	tests := []struct {
		name     string
		versions []string
		want     bool
	}{
		{"empty trust database", nil, false},
		{"matching short id", []string{strings.ToLower(key.ShortKeyID())}, true},
		{"no matching record", []string{"deadbeef"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := mocks.NewMockEngine()
			session := mocks.NewMockSession(engine)
			session.TrustedVersions = tt.versions
			svc := newTestService(Config{}, session, engine)

			present, err := svc.KeyPresent(key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, present)
			assert.Equal(t, []string{rpm.PubkeyRecordName}, session.KeysCalls)
		})
	}
}

func TestImportKeyNew(t *testing.T) {
	key := newTestKey(t)
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	svc := newTestService(Config{}, session, engine)

	imported, err := svc.ImportKey(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, imported)
	require.Len(t, session.ImportKeyCalls, 1)
	assert.Equal(t, key.Pkt(), session.ImportKeyCalls[0])
}

func TestImportKeyAlreadyTrusted(t *testing.T) {
	key := newTestKey(t)
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.TrustedVersions = []string{key.ShortKeyID()}
	svc := newTestService(Config{}, session, engine)

	imported, err := svc.ImportKey(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, imported)
	// no mutation when the key is already trusted
	assert.Empty(t, session.ImportKeyCalls)
}

func TestImportKeyEngineRejection(t *testing.T) {
	key := newTestKey(t)
	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	session.ImportErr = errors.New("import rejected")
	svc := newTestService(Config{}, session, engine)

	_, err := svc.ImportKey(context.Background(), key)
	require.Error(t, err)

	var importErr *gpg.KeyImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, key.URL(), importErr.URL)
}

func TestImportKeyRecordsHistory(t *testing.T) {
	key := newTestKey(t)
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	engine := mocks.NewMockEngine()
	session := mocks.NewMockSession(engine)
	svc := newTestService(Config{}, session, engine, WithRecorder(store))

	imported, err := svc.ImportKey(context.Background(), key)
	require.NoError(t, err)
	require.True(t, imported)

	events, err := store.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.ActionImport, events[0].Action)
	assert.Equal(t, key.KeyID(), events[0].KeyID)
}
