package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"lana/holder"
	"lana/storage"
)

type stubCompleter struct {
	reply string
	err   error
	seen  []Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	s.seen = messages
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestEngine(completer Completer) (*Engine, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage(16)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(log, holder.NewHistory(store), completer), store
}

func TestReplyPassesThroughProviderText(t *testing.T) {
	stub := &stubCompleter{reply: "hi there"}
	engine, _ := newTestEngine(stub)

	reply, err := engine.Reply(context.Background(), 1, "hello", "tester")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestReplyFallsBackOnProviderError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("rate limited")}
	engine, store := newTestEngine(stub)

	reply, err := engine.Reply(context.Background(), 1, "Привет, как дела?", "tester")
	if err != nil {
		t.Fatalf("provider failure must not surface as an error, got %v", err)
	}
	if reply == "" {
		t.Fatalf("fallback reply is empty")
	}
	if !strings.Contains(reply, "Привет, как дела?") {
		t.Fatalf("fallback reply does not echo the user text: %q", reply)
	}

	// the engine itself never writes to storage
	turns, _ := store.GetHistory(1)
	if len(turns) != 0 {
		t.Fatalf("engine wrote %d turns to storage", len(turns))
	}
}

func TestReplyWithoutProviderUsesFallback(t *testing.T) {
	engine, _ := newTestEngine(nil)

	reply, err := engine.Reply(context.Background(), 1, "hello", "")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !strings.Contains(reply, "hello") {
		t.Fatalf("offline reply does not echo the user text: %q", reply)
	}
}

func TestComposeMessagesLayout(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	engine, store := newTestEngine(stub)

	store.AppendTurn(1, storage.RoleUser, "first")
	store.AppendTurn(1, storage.RoleAssistant, "second")

	if _, err := engine.Reply(context.Background(), 1, "third", "tester"); err != nil {
		t.Fatalf("reply: %v", err)
	}

	msgs := stub.seen
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[0].Role != storage.RoleSystem || !strings.Contains(msgs[0].Content, "Lana") {
		t.Fatalf("persona prompt not first: %+v", msgs[0])
	}
	if msgs[1].Role != storage.RoleSystem || !strings.Contains(msgs[1].Content, "@tester") {
		t.Fatalf("username note not second: %+v", msgs[1])
	}
	if msgs[2].Content != "first" || msgs[3].Content != "second" {
		t.Fatalf("history out of order: %+v", msgs[2:4])
	}
	last := msgs[len(msgs)-1]
	if last.Role != storage.RoleUser || last.Content != "third" {
		t.Fatalf("new message not last: %+v", last)
	}
}

func TestComposeMessagesWithoutUsername(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	engine, _ := newTestEngine(stub)

	if _, err := engine.Reply(context.Background(), 1, "hi", ""); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if len(stub.seen) != 2 {
		t.Fatalf("expected persona + user message only, got %d", len(stub.seen))
	}
	if stub.seen[1].Role != storage.RoleUser {
		t.Fatalf("unexpected second message: %+v", stub.seen[1])
	}
}
