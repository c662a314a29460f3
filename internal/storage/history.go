/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage keeps a small per-user history of rendered avatars in an
// embedded SQLite database. The history is derived data and disposable; it
// exists so users can revisit recent crops and so the upload pipeline can
// de-duplicate by source hash.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "avatarcrop/internal/log"
	"avatarcrop/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// HistoryFileName is the database file kept under the user data dir.
	HistoryFileName = "history.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking
	// changes and add migrations.
	schemaVersion = 1
)

// Entry is one recorded avatar render.
type Entry struct {
	ID           int64
	SourceHash   string
	CropX, CropY int
	CropW, CropH int
	Scale        float64
	QualityScore float64
	MIME         string
	OutputPath   string
	CreatedAt    time.Time
}

// History is an open history database. Safe for use from one process at a
// time.
type History struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path, enables
// WAL mode, and ensures the schema exists.
func Open(path string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open").With(
		slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create data dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("history ready")
	return &History{db: db}, nil
}

// Close closes the underlying database.
func (h *History) Close() error { return h.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS avatars (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			source_hash   TEXT NOT NULL,
			crop_x        INTEGER NOT NULL,
			crop_y        INTEGER NOT NULL,
			crop_w        INTEGER NOT NULL,
			crop_h        INTEGER NOT NULL,
			scale         REAL NOT NULL,
			quality_score REAL NOT NULL,
			mime          TEXT NOT NULL,
			output_path   TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_avatars_hash ON avatars(source_hash);`,
		`CREATE INDEX IF NOT EXISTS idx_avatars_created ON avatars(created_at DESC);`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('schema', ?), ('app_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		fmt.Sprintf("%d", schemaVersion), version.Version)
	if err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// Record inserts one render into the history and returns its row id.
func (h *History) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO avatars(source_hash, crop_x, crop_y, crop_w, crop_h, scale, quality_score, mime, output_path, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		e.SourceHash, e.CropX, e.CropY, e.CropW, e.CropH, e.Scale, e.QualityScore, e.MIME, e.OutputPath, e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("record avatar: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, source_hash, crop_x, crop_y, crop_w, crop_h, scale, quality_score, mime, output_path, created_at
		 FROM avatars ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SourceHash, &e.CropX, &e.CropY, &e.CropW, &e.CropH,
			&e.Scale, &e.QualityScore, &e.MIME, &e.OutputPath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BySource returns all entries for one source hash, newest first.
func (h *History) BySource(ctx context.Context, hash string) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, source_hash, crop_x, crop_y, crop_w, crop_h, scale, quality_score, mime, output_path, created_at
		 FROM avatars WHERE source_hash = ? ORDER BY created_at DESC, id DESC`, hash)
	if err != nil {
		return nil, fmt.Errorf("query by source: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SourceHash, &e.CropX, &e.CropY, &e.CropW, &e.CropH,
			&e.Scale, &e.QualityScore, &e.MIME, &e.OutputPath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep entries and returns the number
// removed.
func (h *History) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := h.db.ExecContext(ctx,
		`DELETE FROM avatars WHERE id NOT IN (
			SELECT id FROM avatars ORDER BY created_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// DefaultPath returns the per-user history database location.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "avatarcrop", HistoryFileName), nil
}
