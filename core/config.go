package core

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string `yaml:"env" env:"LANA_ENV" env-default:"local"`
	Mode           string `yaml:"mode" env:"LANA_MODE" env-default:""`
	TelegramApiKey string `yaml:"telegram_api_key" env:"TELEGRAM_BOT_TOKEN" env-default:""`
	OpenAIApiKey   string `yaml:"openai_api_key" env:"OPENAI_API_KEY" env-default:""`
	Model          string `yaml:"model" env:"LANA_MODEL" env-default:"gpt-4o-mini"`

	FreeMessagesPerDay int `yaml:"free_messages_per_day" env:"FREE_MESSAGES_PER_DAY" env-default:"15"`
	HistoryTurns       int `yaml:"history_turns" env:"HISTORY_TURNS" env-default:"16"`

	// DatabasePath is the SQLite file; empty means in-memory only.
	DatabasePath string `yaml:"database_path" env:"LANA_DB" env-default:""`

	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	} `yaml:"mongo"`
}

// MustLoad reads the YAML config when the file exists, falling back to
// pure environment variables otherwise. Any parse error is fatal.
func MustLoad(path string) *Config {
	conf := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		fmt.Fprintf(os.Stderr, "config: %s\n%s\n", err, desc)
		os.Exit(1)
	}
	return conf
}
