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

package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BunStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, &Event{
		Action:      ActionCheck,
		PackagePath: "/tmp/dummy-1.0-1.x86_64.rpm",
		Result:      "key_missing",
	}))
	require.NoError(t, store.Record(ctx, &Event{
		Action: ActionImport,
		KeyID:  "773DD1BA",
		Result: "imported",
	}))

	events, err := store.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, ActionCheck, events[0].Action)
	assert.Equal(t, "/tmp/dummy-1.0-1.x86_64.rpm", events[0].PackagePath)
	assert.Equal(t, "key_missing", events[0].Result)
	assert.NotEmpty(t, events[0].UUID)
	assert.False(t, events[0].CreatedAt.IsZero())

	assert.Equal(t, ActionImport, events[1].Action)
	assert.Equal(t, "773DD1BA", events[1].KeyID)
	assert.NotEqual(t, events[0].UUID, events[1].UUID)
}

func TestEventsEmptyStore(t *testing.T) {
	store := openTestStore(t)

	events, err := store.Events(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecordKeepsCallerValues(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	event := &Event{
		UUID:   "fixed-uuid",
		Action: ActionCheck,
		Result: "ok",
	}
	require.NoError(t, store.Record(ctx, event))

	events, err := store.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fixed-uuid", events[0].UUID)
}
