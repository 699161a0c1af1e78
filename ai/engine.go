package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lana/holder"
	"lana/lib/sl"
	"lana/storage"
)

// Engine assembles the model prompt from the persona and the user's
// stored history and asks the completion provider for a reply. It never
// writes to storage; recording both sides of the exchange is the
// caller's job.
type Engine struct {
	log       *slog.Logger
	history   *holder.History
	completer Completer
}

// NewEngine builds the conversation engine. completer may be nil, in
// which case every reply is the offline fallback.
func NewEngine(log *slog.Logger, history *holder.History, completer Completer) *Engine {
	return &Engine{
		log:       log.With(sl.Module("engine")),
		history:   history,
		completer: completer,
	}
}

// Reply produces the assistant's answer to userText. A provider failure
// is absorbed into the deterministic fallback reply; only storage
// errors propagate.
func (e *Engine) Reply(ctx context.Context, userID int64, userText, username string) (string, error) {
	history, err := e.history.Context(userID)
	if err != nil {
		return "", fmt.Errorf("fetching history for user %d: %w", userID, err)
	}

	messages := e.composeMessages(history, userText, username)

	if e.completer == nil {
		return fallbackReply(userText), nil
	}

	reply, err := e.completer.Complete(ctx, messages)
	if err != nil {
		e.log.Warn("completion failed, using fallback reply", sl.User(userID), sl.Err(err))
		return fallbackReply(userText), nil
	}

	logText := reply
	if len(logText) > 50 {
		logText = logText[:50] + "..."
	}
	e.log.With(
		sl.User(userID),
		slog.String("text", logText),
	).Info("outgoing message")

	return reply, nil
}

// composeMessages lays out the prompt: persona first, then the username
// hint when known, the retained history in order, and the new user
// message last.
func (e *Engine) composeMessages(history []storage.Turn, userText, username string) []Message {
	messages := make([]Message, 0, len(history)+3)
	messages = append(messages, Message{Role: storage.RoleSystem, Content: systemPrompt})
	if username != "" {
		messages = append(messages, Message{
			Role:    storage.RoleSystem,
			Content: fmt.Sprintf("User telegram username is @%s.", username),
		})
	}
	for _, turn := range history {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, Message{Role: storage.RoleUser, Content: userText})
	return messages
}

func fallbackReply(userText string) string {
	return fallbackReplyPrefix + strings.TrimSpace(userText)
}
