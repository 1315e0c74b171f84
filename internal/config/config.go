package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuditStoreMemory   = "memory"
	AuditStorePostgres = "postgres"

	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"

	defaultMaxImageBytes = 4 << 20
)

type Config struct {
	Env          string
	LogLevel     slog.Level
	Server       ServerConfig
	Auth         AuthConfig
	AI           AIConfig
	Uploads      UploadConfig
	Registration RegistrationConfig
	Audit        AuditConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
	BodyLimit    string
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	SessionTTL         time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxOutputTokens    int
}

type UploadConfig struct {
	MaxImageBytes int64
}

type RegistrationConfig struct {
	ScoreOnSubmit bool
}

type AuditConfig struct {
	Store    string
	Database DatabaseConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Load загружает конфигурацию сервера из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	level, err := parseLevelEnv("LOG_LEVEL", slog.LevelInfo)
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = level

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	// Разбор счета через модель может занимать десятки секунд.
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		CORSOrigins:  parseCSVEnv("SERVER_CORS_ORIGINS"),
		BodyLimit:    getEnv("SERVER_BODY_LIMIT", "8M"),
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 12*time.Hour)
	if err != nil {
		return cfg, err
	}

	rateLimitPerMinute, err := parseIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return cfg, err
	}

	rateLimitBurst, err := parseIntEnv("AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return cfg, err
	}

	cfg.Auth = AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "credit-assist"),
		SessionTTL:         sessionTTL,
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
	}

	aiCfg, err := loadAI()
	if err != nil {
		return cfg, err
	}
	cfg.AI = aiCfg

	maxImageBytes, err := parseIntEnv("UPLOAD_MAX_IMAGE_BYTES", defaultMaxImageBytes)
	if err != nil {
		return cfg, err
	}
	cfg.Uploads = UploadConfig{MaxImageBytes: int64(maxImageBytes)}

	scoreOnSubmit, err := parseBoolEnv("REGISTRATION_SCORE_ON_SUBMIT", true)
	if err != nil {
		return cfg, err
	}
	cfg.Registration = RegistrationConfig{ScoreOnSubmit: scoreOnSubmit}

	audit, err := loadAudit()
	if err != nil {
		return cfg, err
	}
	cfg.Audit = audit

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadAI загружает только настройки модели; используется CLI без JWT_SECRET.
func LoadAI() (AIConfig, error) {
	if err := loadEnv(); err != nil {
		return AIConfig{}, err
	}

	cfg, err := loadAI()
	if err != nil {
		return cfg, err
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadAI() (AIConfig, error) {
	aiTimeout, err := parseDurationEnv("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	aiRateLimitPerMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return AIConfig{}, err
	}

	aiRateLimitBurst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 10)
	if err != nil {
		return AIConfig{}, err
	}

	aiMaxOutputTokens, err := parseIntEnv("AI_MAX_OUTPUT_TOKENS", 2048)
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini))
	defaultBaseURL, defaultModel, keyFallback := providerDefaults(provider)

	apiKey := getEnv("AI_API_KEY", "")
	if apiKey == "" && keyFallback != "" {
		apiKey = getEnv(keyFallback, "")
	}

	return AIConfig{
		Provider:           provider,
		APIKey:             apiKey,
		BaseURL:            getEnv("AI_BASE_URL", defaultBaseURL),
		Model:              getEnv("AI_MODEL", defaultModel),
		Timeout:            aiTimeout,
		RateLimitPerMinute: aiRateLimitPerMinute,
		RateLimitBurst:     aiRateLimitBurst,
		MaxOutputTokens:    aiMaxOutputTokens,
	}, nil
}

func providerDefaults(provider string) (baseURL, model, keyEnv string) {
	switch provider {
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta", "gemini-2.0-flash", "GEMINI_API_KEY"
	case ProviderGenAI:
		return "", "gemini-2.0-flash", "GEMINI_API_KEY"
	case ProviderGroq:
		return "https://api.groq.com/openai/v1", "meta-llama/llama-4-scout-17b-16e-instruct", "GROQ_API_KEY"
	case ProviderOpenAI:
		return "", "gpt-4o-mini", "OPENAI_API_KEY"
	default:
		return "", "", ""
	}
}

func loadAudit() (AuditConfig, error) {
	store := strings.ToLower(getEnv("AUDIT_STORE", AuditStoreMemory))

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return AuditConfig{}, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 5)
	if err != nil {
		return AuditConfig{}, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return AuditConfig{}, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return AuditConfig{}, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return AuditConfig{}, err
	}

	return AuditConfig{
		Store: store,
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnv("DB_USER", "credit"),
			Password:        getEnv("DB_PASSWORD", "credit"),
			Name:            getEnv("DB_NAME", "credit_assist"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxIdleTime: connMaxIdleTime,
			ConnMaxLifetime: connMaxLifetime,
		},
	}, nil
}

// DSN возвращает строку подключения к базе данных аудита.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if err := c.AI.validate(); err != nil {
		return err
	}

	switch c.Audit.Store {
	case AuditStoreMemory:
	case AuditStorePostgres:
		db := c.Audit.Database
		if db.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if db.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if db.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if db.MaxIdleConns > db.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
		}
	default:
		return fmt.Errorf("AUDIT_STORE must be one of %s, %s", AuditStoreMemory, AuditStorePostgres)
	}

	return nil
}

func (c AIConfig) validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderGenAI, ProviderGroq, ProviderOpenAI:
	default:
		return fmt.Errorf("AI_PROVIDER %q is not supported", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("AI_MODEL is required")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseLevelEnv(key string, fallback slog.Level) (slog.Level, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback, fmt.Errorf("%s must be a log level: %w", key, err)
	}

	return level, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
