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

// Package history persists a durable record of trust operations: signature
// checks and key imports. The store is an audit trail only; trust decisions
// never depend on it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// Action values recorded for trust events.
const (
	ActionCheck  = "check"
	ActionImport = "import"
)

// Event is one recorded trust operation.
type Event struct {
	bun.BaseModel `bun:"table:trust_events,alias:te"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UUID        string    `bun:"uuid,notnull"`
	Action      string    `bun:"action,notnull"`
	PackagePath string    `bun:"package_path"`
	KeyID       string    `bun:"key_id"`
	Result      string    `bun:"result,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// Recorder persists trust events. Satisfied by Store; consumers that only
// write should depend on this.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// Store is the full history interface.
type Store interface {
	Recorder

	// Events returns all recorded events in insertion order.
	Events(ctx context.Context) ([]Event, error)

	// Close releases the underlying database.
	Close() error
}

// BunStore is a Store over a sqlite database.
type BunStore struct {
	db *bun.DB
}

// Open opens the history database at path, creating the schema if missing.
// Path may be ":memory:" for an ephemeral store.
func Open(path string) (*BunStore, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %q: %w", path, err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*Event)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &BunStore{db: db}, nil
}

// Record inserts one event, filling UUID and CreatedAt when unset.
func (s *BunStore) Record(ctx context.Context, event *Event) error {
	if event.UUID == "" {
		event.UUID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("history: record event: %w", err)
	}
	return nil
}

// Events returns all recorded events in insertion order.
func (s *BunStore) Events(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := s.db.NewSelect().
		Model(&events).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("history: list events: %w", err)
	}
	return events, nil
}

// Close releases the underlying database.
func (s *BunStore) Close() error {
	return s.db.Close()
}
