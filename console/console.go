package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"lana/core"
	"lana/lib/sl"
)

const (
	localUserID   = 1
	localUsername = "local_user"

	errorResponse = "Ой... что-то пошло не так. Попробуем ещё раз чуть позже."
)

// Console is the local sandbox transport: one line in, one reply out,
// no Telegram needed. Input and output are injected so a script file,
// a pipe or a test buffer all work the same way.
type Console struct {
	conf *core.Config
	log  *slog.Logger
	chat core.ChatService
	in   io.Reader
	out  io.Writer
}

func NewConsole(conf *core.Config, log *slog.Logger, chat core.ChatService, in io.Reader, out io.Writer) *Console {
	return &Console{
		conf: conf,
		log:  log.With(sl.Module("console")),
		chat: chat,
		in:   in,
		out:  out,
	}
}

// Run reads lines until the input is exhausted or a quit command is
// seen. Each line is handled inside its own recovery boundary, so a
// bad message never kills the session.
func (c *Console) Run() error {
	fmt.Fprintln(c.out, "Lana local sandbox ✨ (type /quit to exit, /reset to clear)")

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == ":q" || line == "exit" {
			break
		}
		c.handleLine(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func (c *Console) handleLine(line string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic while handling line", slog.Any("panic", r))
			c.reply(errorResponse)
		}
	}()

	switch line {
	case "/reset":
		ack, err := c.chat.ResetHistory(localUserID)
		if err != nil {
			c.log.Error("resetting history", sl.Err(err))
			c.reply(errorResponse)
			return
		}
		c.reply(ack)
	case "/stats":
		used, limit, err := c.chat.QuotaStatus(localUserID, localUsername)
		if err != nil {
			c.log.Error("quota status", sl.Err(err))
			c.reply(errorResponse)
			return
		}
		left := limit - used
		if left < 0 {
			left = 0
		}
		c.reply(fmt.Sprintf("Сегодня осталось сообщений: %d/%d", left, limit))
	default:
		response, err := c.chat.HandleMessage(context.Background(), localUserID, localUsername, line)
		if err != nil {
			c.log.Error("handling message", sl.Err(err))
			c.reply("Упс, у меня затык с базой/сетью. Напиши ещё раз чуть позже.")
			return
		}
		c.reply(response)
	}
}

func (c *Console) reply(text string) {
	fmt.Fprintf(c.out, "lana> %s\n", text)
}
