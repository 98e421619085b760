package store

import (
	"context"
	"path/filepath"
	"testing"
)

// ============================================================
// SQLite initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.Get(&version, "PRAGMA user_version")
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPathSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tally.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := SetInt(ctx, s, "salary_day", 25); err != nil {
		t.Fatal(err)
	}
	if err := PutInSeries(ctx, s, "daily_counts", "2025-10-18", 4); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: should not re-migrate and should see the durable values.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if n, _ := GetInt(ctx, s2, "salary_day", 0); n != 25 {
		t.Fatalf("salary_day after reopen = %d, want 25", n)
	}
	series, _ := GetSeries(ctx, s2, "daily_counts")
	if series["2025-10-18"] != 4 {
		t.Fatalf("daily_counts after reopen = %v", series)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestCorruptedBytesOnDisk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	PutSeries(ctx, s, "daily_counts", Series{"2025-10-18": 2})

	if _, err := s.db.Exec(`UPDATE kv SET value = '{"2025-10-18": 2' WHERE key = 'daily_counts'`); err != nil {
		t.Fatal(err)
	}

	got, err := GetSeries(ctx, s, "daily_counts")
	if err != nil {
		t.Fatalf("GetSeries should swallow corruption, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty series, got %v", got)
	}
}

func TestGetAfterCloseFails(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	n, err := GetInt(context.Background(), s, "salary_day", 9)
	if err == nil {
		t.Fatal("expected error from closed store")
	}
	if n != 9 {
		t.Fatalf("read error should degrade to default, got %d", n)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "tally.db" {
		t.Fatalf("unexpected path %q", path)
	}
}
