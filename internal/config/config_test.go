package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_ADDR", "DATABASE_PATH", "MIGRATIONS_URL", "LOG_LEVEL",
		"ATTEMPT_SECONDS", "ATTEMPTS_PER_LIFT", "RESULTS_CRON", "RESULTS_CRON_ENABLED",
		"MEET_RULES_FILE", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "meet_control.db", cfg.DatabasePath)
	assert.Equal(t, 60, cfg.AttemptSeconds)
	assert.Equal(t, 3, cfg.AttemptsPerLift)
	assert.Equal(t, DefaultResultsCron, cfg.ResultsCron)
	assert.True(t, cfg.ResultsCronEnabled)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATTEMPT_SECONDS", "45")
	t.Setenv("ATTEMPTS_PER_LIFT", "4")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RESULTS_CRON_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.AttemptSeconds)
	assert.Equal(t, 4, cfg.AttemptsPerLift)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.ResultsCronEnabled)
}

func TestFromEnv_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "non-numeric attempt window", env: map[string]string{"ATTEMPT_SECONDS": "soon"}},
		{name: "zero attempt window", env: map[string]string{"ATTEMPT_SECONDS": "0"}},
		{name: "negative attempts", env: map[string]string{"ATTEMPTS_PER_LIFT": "-1"}},
		{name: "bad cron", env: map[string]string{"RESULTS_CRON": "every now and then"}},
		{name: "telegram without chat", env: map[string]string{"TELEGRAM_BOT_TOKEN": "123:abc"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("attempt_seconds: 90\nresults_cron: \"*/5 * * * *\"\n"), 0o644))
	t.Setenv("MEET_RULES_FILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.AttemptSeconds)
	assert.Equal(t, 3, cfg.AttemptsPerLift, "unset keys keep their defaults")
	assert.Equal(t, "*/5 * * * *", cfg.ResultsCron)
}

func TestLoadRules_Errors(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.LoadRules(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("attempt_seconds: [oops"), 0o644))
	assert.Error(t, cfg.LoadRules(path))
}
