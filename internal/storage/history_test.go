/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "data", HistoryFileName))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func entry(hash string, ts time.Time) Entry {
	return Entry{
		SourceHash:   hash,
		CropX:        10, CropY: 20, CropW: 640, CropH: 640,
		Scale:        1.1,
		QualityScore: 0.93,
		MIME:         "image/png",
		OutputPath:   "/tmp/avatar.png",
		CreatedAt:    ts,
	}
}

func TestRecordAndRecent(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := h.Record(ctx, entry("hashA", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := h.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Fatalf("entries not newest-first: %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}
	if got[0].CropW != 640 || got[0].Scale != 1.1 || got[0].MIME != "image/png" {
		t.Fatalf("round trip lost fields: %+v", got[0])
	}
}

func TestBySource(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := h.Record(ctx, entry("one", now)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := h.Record(ctx, entry("two", now.Add(time.Second))); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := h.BySource(ctx, "one")
	if err != nil {
		t.Fatalf("by source: %v", err)
	}
	if len(got) != 1 || got[0].SourceHash != "one" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestPrune(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := h.Record(ctx, entry("h", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	removed, err := h.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed %d, want 3", removed)
	}
	left, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("left %d, want 2", len(left))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, HistoryFileName)
	ctx := context.Background()

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Record(ctx, entry("persist", time.Now().UTC())); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	h2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h2.Close()
	got, err := h2.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].SourceHash != "persist" {
		t.Fatalf("data lost across reopen: %+v", got)
	}
}
