package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lana/core"
	"lana/lib/sl"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

const errorResponse = "Ой... что-то пошло не так. Попробуем ещё раз чуть позже."

type TgBot struct {
	conf *core.Config
	log  *slog.Logger
	api  *tgbotapi.BotAPI
	chat core.ChatService
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBotAPI(conf.TelegramApiKey)
	if err != nil {
		return nil, err
	}
	return &TgBot{
		conf: conf,
		log:  log.With(sl.Module("telegram")),
		api:  api,
	}, nil
}

// SetChat set chat service
func (t *TgBot) SetChat(chat core.ChatService) {
	t.chat = chat
}

func (t *TgBot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}

	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		go t.handleUpdate(update.Message)
	}
	return nil
}

func (t *TgBot) Stop() {
	t.api.StopReceivingUpdates()
}

// handleUpdate is the per-message boundary: whatever goes wrong inside,
// the user gets one apology and the update loop keeps running.
func (t *TgBot) handleUpdate(incoming *tgbotapi.Message) {
	chatID := incoming.Chat.ID
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("panic while handling message", slog.Any("panic", r))
			t.plainResponse(chatID, errorResponse)
		}
	}()

	userID := int64(incoming.From.ID)
	username := incoming.From.UserName

	logText := incoming.Text
	if len(logText) > 50 {
		logText = logText[:50] + "..."
	}
	t.log.With(
		sl.User(userID),
		slog.String("text", logText),
	).Debug("incoming message")

	if incoming.IsCommand() {
		if t.handleCommand(chatID, userID, username, incoming.Command()) {
			return
		}
		// unknown commands fall through as plain text
	}

	t.sendReply(chatID, userID, username, incoming.Text)
}

// handleCommand dispatches the known commands and reports whether the
// message was consumed.
func (t *TgBot) handleCommand(chatID, userID int64, username, command string) bool {
	switch command {
	case "start":
		_, limit, err := t.chat.QuotaStatus(userID, username)
		if err != nil {
			t.log.Error("quota status", sl.User(userID), sl.Err(err))
			t.plainResponse(chatID, errorResponse)
			return true
		}
		t.plainResponse(chatID, fmt.Sprintf(
			"Привет! Я Lana — твоя ИИ-компаньонка. 💫\n\n"+
				"Пиши на любом языке — я подстроюсь. Первый день даю %d сообщений бесплатно.\n"+
				"Команды: /help /reset /stats.", limit))
		return true
	case "help":
		t.plainResponse(chatID,
			"Я — Lana: тёплая, остроумная, иногда флиртую 😉\n\n"+
				"Что я умею:\n"+
				"• Поддержать, поболтать, обсудить планы.\n"+
				"• Практиковать языки — отвечаю на том же языке.\n"+
				"• Помнить твои предпочтения в рамках чата.\n\n"+
				"Безопасность: PG-13, без откровенного контента.\n"+
				"Команды: /reset — забыть текущий контекст, /stats — лимит на сегодня.")
		return true
	case "reset":
		ack, err := t.chat.ResetHistory(userID)
		if err != nil {
			t.log.Error("resetting history", sl.User(userID), sl.Err(err))
			t.plainResponse(chatID, "Хм, не смогла очистить историю из-за сбоя хранилища. Попробуем позже.")
			return true
		}
		t.plainResponse(chatID, ack)
		return true
	case "stats":
		used, limit, err := t.chat.QuotaStatus(userID, username)
		if err != nil {
			t.log.Error("quota status", sl.User(userID), sl.Err(err))
			t.plainResponse(chatID, errorResponse)
			return true
		}
		left := limit - used
		if left < 0 {
			left = 0
		}
		t.plainResponse(chatID, fmt.Sprintf("Сегодня осталось сообщений: %d/%d", left, limit))
		return true
	}
	return false
}

// sendReply keeps a typing action going while the reply is generated.
func (t *TgBot) sendReply(chatID, userID int64, username, text string) {
	stopTicker := make(chan struct{})

	go func() {
		t.sendChatAction(chatID, "typing")
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.sendChatAction(chatID, "typing")
			case <-stopTicker:
				return
			}
		}
	}()

	reply, err := t.chat.HandleMessage(context.Background(), userID, username, text)
	close(stopTicker)
	if err != nil {
		t.log.Error("handling message", sl.User(userID), sl.Err(err))
		reply = "Упс, у меня затык с базой/сетью. Напиши ещё раз чуть позже."
	}

	t.plainResponse(chatID, reply)
}

func (t *TgBot) sendChatAction(chatID int64, action string) {
	msg := tgbotapi.NewChatAction(chatID, action)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Warn("sending chat action", sl.Err(err))
	}
}

func (t *TgBot) plainResponse(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("sending message", sl.Err(err))
	}
}
