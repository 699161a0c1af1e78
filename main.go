package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lana/ai"
	"lana/bot"
	"lana/chat"
	"lana/console"
	"lana/core"
	"lana/holder"
	"lana/lib/sl"
	"lana/quota"
	"lana/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	local := flag.Bool("local", false, "run the local console instead of Telegram")
	script := flag.String("script", "", "path to a file with input lines for local run")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("env", conf.Env),
		slog.String("model", conf.Model),
		slog.Int("free_per_day", conf.FreeMessagesPerDay),
		sl.Secret(conf.OpenAIApiKey),
	).Info("starting lana bot")

	store := setupStorage(conf, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("closing storage", sl.Err(err))
		}
	}()

	history := holder.NewHistory(store)
	tracker := quota.NewTracker(conf.FreeMessagesPerDay)

	var completer ai.Completer
	if conf.OpenAIApiKey != "" {
		completer = ai.NewOpenAI(conf.OpenAIApiKey, conf.Model)
	} else {
		log.Warn("no OpenAI key, replies will use the offline fallback")
	}
	engine := ai.NewEngine(log, history, completer)
	service := chat.NewService(log, store, history, tracker, engine)

	if *local || conf.Mode == envLocal || conf.TelegramApiKey == "" {
		runLocal(conf, log, service, *script)
		return
	}
	runTelegram(conf, log, service)
}

// setupStorage picks the durable backend from config (Mongo when
// enabled, otherwise SQLite when a path is set) and wraps it with the
// one-shot in-memory fallback. With no durable config at all the
// process runs on memory from the start.
func setupStorage(conf *core.Config, log *slog.Logger) storage.Store {
	fallback := func() storage.Store {
		return storage.NewMemoryStorage(conf.HistoryTurns)
	}

	var durable storage.Store
	if conf.Mongo.Enabled {
		mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:%s",
			conf.Mongo.User, conf.Mongo.Password,
			conf.Mongo.Host, conf.Mongo.Port)
		store, err := storage.NewMongoStorage(mongoURI, conf.Mongo.Database, conf.HistoryTurns, log)
		if err != nil {
			log.With(
				slog.String("db", conf.Mongo.Database),
				slog.String("host", conf.Mongo.Host),
			).Error("mongo unavailable, falling back to memory", sl.Err(err))
			return fallback()
		}
		log.Info("using MongoDB storage")
		durable = store
	} else if conf.DatabasePath != "" {
		store, err := storage.NewSQLiteStorage(conf.DatabasePath, conf.HistoryTurns)
		if err != nil {
			log.With(
				slog.String("path", conf.DatabasePath),
			).Error("sqlite unavailable, falling back to memory", sl.Err(err))
			return fallback()
		}
		log.With(slog.String("path", conf.DatabasePath)).Info("using SQLite storage")
		durable = store
	} else {
		log.Info("using in-memory storage")
		return fallback()
	}

	return storage.NewResilientStorage(durable, fallback, log)
}

func runLocal(conf *core.Config, log *slog.Logger, service core.ChatService, scriptPath string) {
	in := os.Stdin
	if scriptPath != "" {
		f, err := os.Open(scriptPath)
		if err != nil {
			log.Error("opening script file", sl.Err(err))
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	c := console.NewConsole(conf, log, service, in, os.Stdout)
	if err := c.Run(); err != nil {
		log.Error("console session failed", sl.Err(err))
		os.Exit(1)
	}
}

func runTelegram(conf *core.Config, log *slog.Logger, service core.ChatService) {
	tgBot, err := bot.NewTgBot(conf, log)
	if err != nil {
		log.Error("creating telegram", sl.Err(err))
		os.Exit(1)
	}
	tgBot.SetChat(service)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := tgBot.Start(); err != nil {
			log.Error("bot stopped with error", sl.Err(err))
		}
	}()

	log.Info("bot started")

	sig := <-sigChan
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	tgBot.Stop()
	log.Info("shutdown complete")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
