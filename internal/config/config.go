// Package config loads process configuration from the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds every setting of the intake process.
type Config struct {
	BotToken     string `env:"BOT_TOKEN"`
	AdminChannel string `env:"ADMIN_CHANNEL"`

	FormPath string `env:"INTAKE_FORM"`

	Store         string        `env:"INTAKE_STORE" envDefault:"memory"`
	FileDir       string        `env:"INTAKE_FILE_DIR" envDefault:".intake/sessions"`
	RedisAddr     string        `env:"INTAKE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"INTAKE_REDIS_PASSWORD"`
	RedisDB       int           `env:"INTAKE_REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"INTAKE_SESSION_TTL" envDefault:"0s"`

	EncryptionKey  string   `env:"INTAKE_ENCRYPTION_KEY"`
	FallbackKeys   []string `env:"INTAKE_ENCRYPTION_FALLBACK_KEYS" envSeparator:","`
	HTTPAddr       string   `env:"INTAKE_HTTP_ADDR"`
	HTTPToken      string   `env:"INTAKE_HTTP_TOKEN"`
	LogLevel       string   `env:"INTAKE_LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"INTAKE_LOG_FORMAT" envDefault:"text"`
	MaxInputSize   int      `env:"INTAKE_MAX_INPUT_SIZE" envDefault:"4096"`
	IdleCancelAck  bool     `env:"INTAKE_IDLE_CANCEL_ACK" envDefault:"true"`
	PollTimeoutSec int      `env:"INTAKE_POLL_TIMEOUT" envDefault:"30"`
}

// Load reads the given dotenv files (".env" when none are named, and only if
// it exists) and then parses the environment. Variables already set in the
// environment win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("INTAKE_STORE must be one of %q, %q, %q; got %q", StoreMemory, StoreFile, StoreRedis, c.Store))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("INTAKE_SESSION_TTL must not be negative"))
	}
	if c.MaxInputSize <= 0 {
		errs = append(errs, errors.New("INTAKE_MAX_INPUT_SIZE must be positive"))
	}
	if _, err := logging.FromConfig(c.LogLevel, c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.Keys(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateTelegram additionally requires the bot credentials.
func (c *Config) ValidateTelegram() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.AdminChannel == "" {
		errs = append(errs, errors.New("ADMIN_CHANNEL is required"))
	} else if _, err := strconv.ParseInt(c.AdminChannel, 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("ADMIN_CHANNEL must be a numeric chat id, got %q", c.AdminChannel))
	}
	return errors.Join(errs...)
}

// Keys decodes the base64 encryption keys. It returns a nil active key
// when encryption is not configured.
func (c *Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.FallbackKeys) > 0 {
			return nil, nil, errors.New("INTAKE_ENCRYPTION_FALLBACK_KEYS set without INTAKE_ENCRYPTION_KEY")
		}
		return nil, nil, nil
	}
	active, err = decodeKey("INTAKE_ENCRYPTION_KEY", c.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("INTAKE_ENCRYPTION_FALLBACK_KEYS[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}
