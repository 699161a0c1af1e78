package chat

import (
	"context"
	"fmt"
	"log/slog"

	"lana/ai"
	"lana/holder"
	"lana/lib/sl"
	"lana/quota"
	"lana/storage"
)

const (
	// PaywallText is sent instead of a reply once the daily free quota
	// is spent. Blocked messages are not recorded and do not count.
	PaywallText = "Бесплатный лимит на сегодня исчерпан. ✨\n\n" +
		"Скоро тут появятся способы подписки: Telegram Stars / CryptoBot / Patreon / Gumroad.\n" +
		"Хочешь — напиши, какой способ удобнее, я подсуну разработчику 😉"

	// ResetAckText confirms a /reset: the conversation is forgotten,
	// the daily counter stays as it was.
	ResetAckText = "Я всё забыла про этот разговор. Начнём заново ✨"
)

// Service runs the per-message protocol shared by every transport:
// ensure user, check quota, record the user turn, generate a reply,
// record the assistant turn, count the message.
type Service struct {
	log     *slog.Logger
	store   storage.Store
	history *holder.History
	quota   *quota.Tracker
	engine  *ai.Engine
}

func NewService(log *slog.Logger, store storage.Store, history *holder.History, tracker *quota.Tracker, engine *ai.Engine) *Service {
	return &Service{
		log:     log.With(sl.Module("chat")),
		store:   store,
		history: history,
		quota:   tracker,
		engine:  engine,
	}
}

// HandleMessage processes one inbound message end to end and returns
// the text to show the user. The ordering is fixed: the user's turn is
// recorded before the reply is generated, so a provider failure still
// leaves the message in history exactly once.
func (s *Service) HandleMessage(ctx context.Context, userID int64, username, text string) (string, error) {
	user, err := s.store.GetOrCreateUser(userID, username)
	if err != nil {
		return "", fmt.Errorf("ensuring user %d: %w", userID, err)
	}

	if !s.quota.Allow(user) {
		s.log.Info("quota exhausted", sl.User(userID), slog.Int("used", user.MessagesToday))
		return PaywallText, nil
	}

	if err := s.history.Record(userID, storage.RoleUser, text); err != nil {
		return "", fmt.Errorf("recording user turn: %w", err)
	}

	reply, err := s.engine.Reply(ctx, userID, text, username)
	if err != nil {
		return "", err
	}

	if err := s.history.Record(userID, storage.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("recording assistant turn: %w", err)
	}
	if err := s.store.IncrementCounter(userID); err != nil {
		return "", fmt.Errorf("counting message: %w", err)
	}

	return reply, nil
}

// ResetHistory clears the user's conversation and returns the ack text.
func (s *Service) ResetHistory(userID int64) (string, error) {
	if err := s.history.Reset(userID); err != nil {
		return "", fmt.Errorf("resetting history for user %d: %w", userID, err)
	}
	s.log.Info("history cleared", sl.User(userID))
	return ResetAckText, nil
}

// QuotaStatus reports messages used today and the daily limit.
func (s *Service) QuotaStatus(userID int64, username string) (int, int, error) {
	user, err := s.store.GetOrCreateUser(userID, username)
	if err != nil {
		return 0, 0, fmt.Errorf("reading quota for user %d: %w", userID, err)
	}
	return user.MessagesToday, s.quota.Limit, nil
}
