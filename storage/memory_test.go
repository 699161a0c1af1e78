package storage

import (
	"fmt"
	"testing"
	"time"
)

func TestMemoryDailyRollover(t *testing.T) {
	m := NewMemoryStorage(16)

	day1 := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return day1 }
	if _, err := m.GetOrCreateUser(1, "memtest"); err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := m.IncrementCounter(1); err != nil {
		t.Fatalf("increment: %v", err)
	}

	m.now = func() time.Time { return day2 }
	u, err := m.GetOrCreateUser(1, "memtest")
	if err != nil {
		t.Fatalf("get or create on new day: %v", err)
	}
	if u.MessagesToday != 0 || u.LastReset != "2026-08-30" {
		t.Fatalf("rollover failed: %+v", u)
	}
}

func TestMemoryHistoryCap(t *testing.T) {
	m := NewMemoryStorage(2) // cap 4

	for i := 0; i < 7; i++ {
		if err := m.AppendTurn(1, RoleUser, fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	turns, err := m.GetHistory(1)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Content != "msg 3" || turns[3].Content != "msg 6" {
		t.Fatalf("unexpected window: %+v", turns)
	}
}

func TestMemoryClearAndIsolation(t *testing.T) {
	m := NewMemoryStorage(16)

	if err := m.AppendTurn(1, RoleUser, "a"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.AppendTurn(2, RoleAssistant, "b"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.ClearHistory(1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	turns1, _ := m.GetHistory(1)
	turns2, _ := m.GetHistory(2)
	if len(turns1) != 0 {
		t.Fatalf("history not cleared: %+v", turns1)
	}
	if len(turns2) != 1 {
		t.Fatalf("other user's history lost: %+v", turns2)
	}
}

func TestMemoryReturnedSliceIsCopy(t *testing.T) {
	m := NewMemoryStorage(16)
	if err := m.AppendTurn(1, RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	turns, _ := m.GetHistory(1)
	turns[0].Content = "mutated"
	again, _ := m.GetHistory(1)
	if again[0].Content != "hello" {
		t.Fatalf("internal state mutated via returned slice")
	}
}
