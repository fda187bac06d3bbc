package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// MaxRedirectDelay bounds how long an expired session may linger on screen
// before the user is sent back to login.
const MaxRedirectDelay = 10 * time.Second

type Config struct {
	Portal      Portal
	Store       Store
	TelegramBot TelegramBot
	Digest      Digest
	HealthAddr  string `envconfig:"HEALTH_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

type Portal struct {
	BaseURL       string        `envconfig:"PORTAL_URL" default:"http://localhost:5000/api"`
	Timeout       time.Duration `envconfig:"PORTAL_TIMEOUT" default:"10s"`
	RedirectDelay time.Duration `envconfig:"REDIRECT_DELAY" default:"2s"`
}

type Store struct {
	Path string `envconfig:"SESSION_DB" default:"courtside.db"`
}

type TelegramBot struct {
	Token  string `envconfig:"TELEGRAM_TOKEN"`
	ChatID int64  `envconfig:"CHAT_ID"`
}

type Digest struct {
	Cron     string `envconfig:"DIGEST_CRON"`
	Timezone string `envconfig:"TIMEZONE" default:"America/Chicago"`
}

func New() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Portal.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid PORTAL_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid PORTAL_URL %q: absolute http(s) URL required", c.Portal.BaseURL)
	}
	if c.Portal.Timeout <= 0 {
		return errors.New("PORTAL_TIMEOUT must be positive")
	}
	if c.Portal.RedirectDelay <= 0 || c.Portal.RedirectDelay > MaxRedirectDelay {
		return fmt.Errorf("REDIRECT_DELAY must be in (0, %s], got %s", MaxRedirectDelay, c.Portal.RedirectDelay)
	}
	if c.Digest.Cron != "" {
		if _, err := cron.ParseStandard(c.Digest.Cron); err != nil {
			return fmt.Errorf("invalid DIGEST_CRON: %w", err)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

// RequireBot reports whether the Telegram front-end settings are present.
func (t TelegramBot) RequireBot() error {
	if t.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if t.ChatID == 0 {
		return errors.New("CHAT_ID is required")
	}
	return nil
}
