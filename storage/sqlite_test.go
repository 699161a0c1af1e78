package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T, historyTurns int) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "lana_test.db"), historyTurns)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteGetOrCreateUser(t *testing.T) {
	s := newTestSQLite(t, 16)

	u, err := s.GetOrCreateUser(42, "tester")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if u.ID != 42 || u.Username != "tester" || u.MessagesToday != 0 {
		t.Fatalf("unexpected new user: %+v", u)
	}
	if u.LastReset != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("unexpected last reset: %q", u.LastReset)
	}

	// second call returns the same row, not a fresh one
	if err := s.IncrementCounter(42); err != nil {
		t.Fatalf("increment: %v", err)
	}
	u, err = s.GetOrCreateUser(42, "tester")
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if u.MessagesToday != 1 {
		t.Fatalf("expected counter 1, got %d", u.MessagesToday)
	}
}

func TestSQLiteDailyRollover(t *testing.T) {
	s := newTestSQLite(t, 16)

	day1 := time.Date(2026, 8, 29, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 30, 0, 10, 0, 0, time.UTC)

	s.now = func() time.Time { return day1 }
	if _, err := s.GetOrCreateUser(7, "night_owl"); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.IncrementCounter(7); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	s.now = func() time.Time { return day2 }
	u, err := s.GetOrCreateUser(7, "night_owl")
	if err != nil {
		t.Fatalf("get or create on new day: %v", err)
	}
	if u.MessagesToday != 0 {
		t.Fatalf("counter not reset on rollover: %d", u.MessagesToday)
	}
	if u.LastReset != "2026-08-30" {
		t.Fatalf("last reset not advanced: %q", u.LastReset)
	}
}

func TestSQLiteHistoryCap(t *testing.T) {
	s := newTestSQLite(t, 16) // cap 32

	for i := 0; i < 37; i++ {
		if err := s.AppendTurn(42, RoleUser, fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	turns, err := s.GetHistory(42)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(turns) != 32 {
		t.Fatalf("expected 32 turns, got %d", len(turns))
	}
	// the oldest 5 are gone, relative order preserved
	if turns[0].Content != "msg 5" {
		t.Fatalf("unexpected oldest turn: %q", turns[0].Content)
	}
	if turns[len(turns)-1].Content != "msg 36" {
		t.Fatalf("unexpected newest turn: %q", turns[len(turns)-1].Content)
	}
	for i, turn := range turns {
		if want := fmt.Sprintf("msg %d", i+5); turn.Content != want {
			t.Fatalf("turn %d: got %q, want %q", i, turn.Content, want)
		}
	}
}

func TestSQLiteClearHistory(t *testing.T) {
	s := newTestSQLite(t, 16)

	for i := 0; i < 3; i++ {
		if err := s.AppendTurn(42, RoleUser, "hi"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.ClearHistory(42); err != nil {
		t.Fatalf("clear: %v", err)
	}
	turns, err := s.GetHistory(42)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("history not empty after clear: %d turns", len(turns))
	}
}

func TestSQLiteHistoryIsolatedPerUser(t *testing.T) {
	s := newTestSQLite(t, 16)

	if err := s.AppendTurn(1, RoleUser, "mine"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendTurn(2, RoleUser, "yours"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.ClearHistory(1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	turns, err := s.GetHistory(2)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "yours" {
		t.Fatalf("other user's history affected: %+v", turns)
	}
}

func TestSQLiteIncrementMissingUser(t *testing.T) {
	s := newTestSQLite(t, 16)

	// permissive by contract: no row, no error
	if err := s.IncrementCounter(999); err != nil {
		t.Fatalf("increment for missing user: %v", err)
	}
}
