package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAttemptSeconds  = 60
	DefaultAttemptsPerLift = 3
	DefaultResultsCron     = "@every 30s"
)

// Rules are the meet rules a YAML file may override.
type Rules struct {
	AttemptSeconds  int    `yaml:"attempt_seconds"`
	AttemptsPerLift int    `yaml:"attempts_per_lift"`
	ResultsCron     string `yaml:"results_cron"`
}

type Config struct {
	HTTPAddr      string
	DatabasePath  string
	MigrationsURL string
	LogLevel      slog.Level

	Rules

	ResultsCronEnabled bool
	RulesFile          string

	TelegramToken  string
	TelegramChatID int64
}

func FromEnv() (Config, error) {
	var c Config
	c.HTTPAddr = firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080")
	c.DatabasePath = firstNonEmpty(os.Getenv("DATABASE_PATH"), "meet_control.db")
	c.MigrationsURL = firstNonEmpty(os.Getenv("MIGRATIONS_URL"), "file://migrations")
	c.LogLevel = ParseLogLevel(os.Getenv("LOG_LEVEL"))

	c.Rules = Rules{
		AttemptSeconds:  DefaultAttemptSeconds,
		AttemptsPerLift: DefaultAttemptsPerLift,
		ResultsCron:     DefaultResultsCron,
	}

	var err error
	if c.AttemptSeconds, err = intFromEnv("ATTEMPT_SECONDS", c.AttemptSeconds); err != nil {
		return c, err
	}
	if c.AttemptsPerLift, err = intFromEnv("ATTEMPTS_PER_LIFT", c.AttemptsPerLift); err != nil {
		return c, err
	}
	c.ResultsCron = firstNonEmpty(strings.TrimSpace(os.Getenv("RESULTS_CRON")), c.ResultsCron)
	c.ResultsCronEnabled = os.Getenv("RESULTS_CRON_ENABLED") != "false" && os.Getenv("RESULTS_CRON_ENABLED") != "0"

	c.RulesFile = strings.TrimSpace(os.Getenv("MEET_RULES_FILE"))
	if c.RulesFile != "" {
		if err := c.LoadRules(c.RulesFile); err != nil {
			return c, err
		}
	}

	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		c.TelegramChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
	}

	return c, c.Validate()
}

// LoadRules overlays the non-zero values of the YAML rules file at path.
func (c *Config) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("config: parse rules: %w", err)
	}

	if rules.AttemptSeconds != 0 {
		c.AttemptSeconds = rules.AttemptSeconds
	}
	if rules.AttemptsPerLift != 0 {
		c.AttemptsPerLift = rules.AttemptsPerLift
	}
	if rules.ResultsCron != "" {
		c.ResultsCron = rules.ResultsCron
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.AttemptSeconds <= 0 {
		errs = append(errs, fmt.Errorf("attempt seconds must be positive, got %d", c.AttemptSeconds))
	}
	if c.AttemptsPerLift <= 0 {
		errs = append(errs, fmt.Errorf("attempts per lift must be positive, got %d", c.AttemptsPerLift))
	}
	if _, err := cron.ParseStandard(c.ResultsCron); err != nil {
		errs = append(errs, fmt.Errorf("results cron %q: %w", c.ResultsCron, err))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required with TELEGRAM_BOT_TOKEN"))
	}
	return errors.Join(errs...)
}

func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
