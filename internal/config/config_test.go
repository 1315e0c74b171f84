package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseCSVEnv проверяет разбор списка origin из ENV.
func TestParseCSVEnv(t *testing.T) {
	t.Setenv("SERVER_CORS_ORIGINS", " http://localhost:3000, ,https://credit.example.in ")

	got := parseCSVEnv("SERVER_CORS_ORIGINS")
	assert.Equal(t, []string{"http://localhost:3000", "https://credit.example.in"}, got)
}

// TestParseCSVEnvMissing проверяет поведение при отсутствии переменной.
func TestParseCSVEnvMissing(t *testing.T) {
	assert.Nil(t, parseCSVEnv("MISSING_ENV"))
}

// TestLoadDefaults проверяет значения по умолчанию.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "gemini")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(4<<20), cfg.Uploads.MaxImageBytes)
	assert.True(t, cfg.Registration.ScoreOnSubmit)
	assert.Equal(t, AuditStoreMemory, cfg.Audit.Store)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.AI.BaseURL)
}

// TestLoadRequiresSecret проверяет обязательность JWT_SECRET.
func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

// TestLoadAIProviderFallbackKey проверяет подстановку ключа провайдера.
func TestLoadAIProviderFallbackKey(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("AI_PROVIDER", "groq")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadAI()
	require.NoError(t, err)

	assert.Equal(t, "gsk-test", cfg.APIKey)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.BaseURL)
}

// TestLoadAIUnknownProvider проверяет отказ для неизвестного провайдера.
func TestLoadAIUnknownProvider(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("AI_PROVIDER", "cohere")
	t.Setenv("AI_MODEL", "command")

	_, err := LoadAI()
	require.Error(t, err)
}

// TestParseBoolEnv проверяет разбор булевых флагов.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("REGISTRATION_SCORE_ON_SUBMIT", "false")

	value, err := parseBoolEnv("REGISTRATION_SCORE_ON_SUBMIT", true)
	require.NoError(t, err)
	assert.False(t, value)

	t.Setenv("REGISTRATION_SCORE_ON_SUBMIT", "maybe")
	_, err = parseBoolEnv("REGISTRATION_SCORE_ON_SUBMIT", true)
	assert.Error(t, err)
}
