// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound = errors.New("journal entry not found")
	ErrClosed   = errors.New("journal closed")
)

// =============================================================================
// ENTRY
// =============================================================================

// Mode records what a generation replaced.
type Mode string

const (
	ModeWhole     Mode = "whole"
	ModeSelection Mode = "selection"
)

// Entry is one recorded generation.
type Entry struct {
	ID          string    `json:"id"`
	Document    string    `json:"document,omitempty"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model,omitempty"`
	Prompt      string    `json:"prompt"`
	Mode        Mode      `json:"mode"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Checkpoints int       `json:"checkpoints"`
	Deltas      int       `json:"deltas"`
	Bytes       int       `json:"bytes"`
	FinalHTML   string    `json:"final_html,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration is the wall time of the generation.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// =============================================================================
// JOURNAL
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id          TEXT PRIMARY KEY,
	document    TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	prompt      TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL,
	start_pos   INTEGER NOT NULL,
	end_pos     INTEGER NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	checkpoints INTEGER NOT NULL DEFAULT 0,
	deltas      INTEGER NOT NULL DEFAULT 0,
	bytes       INTEGER NOT NULL DEFAULT 0,
	final_html  TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_started ON generations(started_at DESC);
`

const entryColumns = `id, document, provider, model, prompt, mode, start_pos, end_pos, status,
	error, checkpoints, deltas, bytes, final_html, started_at, finished_at`

// Journal is a sqlite-backed log of generations. It is safe for
// concurrent use.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal at path. ":memory:" opens a private
// in-memory journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive and shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Journal{db: db, path: path}, nil
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores e, assigning an ID when it has none, and returns the ID.
// Recording an existing ID replaces that entry.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = e.StartedAt
	}

	_, err := j.db.ExecContext(ctx, `INSERT OR REPLACE INTO generations (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Document, e.Provider, e.Model, e.Prompt, string(e.Mode), e.Start, e.End, e.Status,
		e.Error, e.Checkpoints, e.Deltas, e.Bytes, e.FinalHTML,
		e.StartedAt.UnixNano(), e.FinishedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to record generation: %w", err)
	}
	return e.ID, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM generations ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID, or one whose ID starts with
// it when the prefix is unambiguous.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	if id == "" {
		return Entry{}, ErrNotFound
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM generations WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, id+"%", id)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get generation: %w", err)
	}
	defer rows.Close()

	var found []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Entry{}, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return Entry{}, err
	}

	switch {
	case len(found) == 0:
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return Entry{}, fmt.Errorf("ambiguous journal id prefix %q", id)
	}
}

// Count returns the number of entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n)
	return n, err
}

// Prune deletes all but the newest keep entries and returns how many were
// removed. keep <= 0 is a no-op.
func (j *Journal) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx, `DELETE FROM generations WHERE id NOT IN (
		SELECT id FROM generations ORDER BY started_at DESC, id LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var mode string
	var started, finished int64
	err := s.Scan(&e.ID, &e.Document, &e.Provider, &e.Model, &e.Prompt, &mode, &e.Start, &e.End,
		&e.Status, &e.Error, &e.Checkpoints, &e.Deltas, &e.Bytes, &e.FinalHTML, &started, &finished)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to scan generation: %w", err)
	}
	e.Mode = Mode(mode)
	e.StartedAt = time.Unix(0, started)
	e.FinishedAt = time.Unix(0, finished)
	return e, nil
}
