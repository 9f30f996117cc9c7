package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

var (
	BlueskyIdentifier string
	BlueskyPassword   string
	ServiceURL        string
	LogLevel          slog.Leveler
	DatabaseFile      string
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	ListenPort        int
)

// fileConfig mirrors the optional YAML config file. Environment variables
// always win over file values.
type fileConfig struct {
	Service      string `yaml:"service"`
	DatabaseFile string `yaml:"database_file"`
	Redis        struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	ListenPort int `yaml:"listen_port"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded",
			"error", err.Error())
	}

	file := loadFileConfig()

	BlueskyIdentifier = os.Getenv("BLUESKY_IDENTIFIER")
	if BlueskyIdentifier == "" {
		slog.Error(`You need to set the "BLUESKY_IDENTIFIER" in the .env file!`)
		os.Exit(1)
	}

	BlueskyPassword = os.Getenv("BLUESKY_APP_PASSWORD")
	if BlueskyPassword == "" {
		slog.Error(`You need to set the "BLUESKY_APP_PASSWORD" in the .env file!`)
		os.Exit(1)
	}

	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "INFO"
	}
	LogLevel = parseLogLevel(logLevelStr)

	ServiceURL = firstOf(os.Getenv("BLUESKY_SERVICE"), file.Service, "https://bsky.social")
	DatabaseFile = firstOf(os.Getenv("DATABASE_FILE"), file.DatabaseFile, "skysplitter.db")

	RedisAddress = firstOf(os.Getenv("REDIS_ADDRESS"), file.Redis.Address)
	RedisPassword = firstOf(os.Getenv("REDIS_PASSWORD"), file.Redis.Password)
	RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	if RedisDB == 0 {
		RedisDB = file.Redis.DB
	}

	ListenPort, _ = strconv.Atoi(os.Getenv("LISTEN_PORT"))
	if ListenPort == 0 {
		ListenPort = file.ListenPort
	}
	if ListenPort == 0 {
		ListenPort = 8080
	}
}

func loadFileConfig() fileConfig {
	var cfg fileConfig

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		slog.Error("Error parsing config file",
			"file", path,
			"error", err.Error())
	}

	return cfg
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseLogLevel(level string) slog.Leveler {
	levels := map[string]slog.Level{
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"WARN":    slog.LevelWarn,
	}

	l, ok := levels[level]
	if !ok {
		l = slog.LevelInfo
	}

	return l
}
