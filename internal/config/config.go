package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gatewire/gateway/pkg/core"
)

// DefaultIntents are the intents used when GATEWAY_INTENTS is unset.
const DefaultIntents = "unprivileged"

// AppConfig is the configuration of the CLI. It is populated from
// environment variables; a .env file is loaded first if present and never
// overrides variables that are already set.
type AppConfig struct {
	Token       string
	Intents     string
	GatewayURL  string
	MetricsAddr string
	LogLevel    string
	Compress    bool
	EventBuffer int
}

// Load reads configuration from the environment after loading the given
// .env files, or ".env" when none are given. Missing files are skipped.
func Load(files ...string) (*AppConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return &AppConfig{
		Token:       getEnv("GATEWAY_TOKEN", ""),
		Intents:     getEnv("GATEWAY_INTENTS", DefaultIntents),
		GatewayURL:  getEnv("GATEWAY_URL", ""),
		MetricsAddr: getEnv("GATEWAY_METRICS_ADDR", ""),
		LogLevel:    getEnv("GATEWAY_LOG_LEVEL", "info"),
		Compress:    getEnvBool("GATEWAY_COMPRESS", false),
		EventBuffer: getEnvInt("GATEWAY_EVENT_BUFFER", 128),
	}, nil
}

// Validate checks the values the CLI cannot run without.
func (c *AppConfig) Validate() error {
	if c.Token == "" {
		return &core.ConfigError{Field: "GATEWAY_TOKEN", Value: "", Err: core.ErrInvalidConfig}
	}
	if _, err := c.ParsedIntents(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return &core.ConfigError{Field: "GATEWAY_LOG_LEVEL", Value: c.LogLevel, Err: err}
	}
	return nil
}

// ParsedIntents parses the configured intent list.
func (c *AppConfig) ParsedIntents() (core.Intents, error) {
	return core.ParseIntents(c.Intents)
}

// Level parses the configured log level.
func (c *AppConfig) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
