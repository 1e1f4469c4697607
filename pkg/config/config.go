package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Counselling CounsellingConfig
	LLM         LLMConfig
	ML          MLConfig
	Exports     ExportsConfig
	Roster      RosterConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CounsellingConfig tunes the guidance pipeline.
type CounsellingConfig struct {
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// ProviderConfig holds the connection settings for one LLM backend.
type ProviderConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// LLMConfig selects the active explanation provider and its variants.
type LLMConfig struct {
	Provider string
	OpenAI   ProviderConfig
	Ollama   ProviderConfig
	LMStudio ProviderConfig
	Groq     ProviderConfig
	XAI      ProviderConfig
}

// MLConfig locates the external prediction service.
type MLConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ExportsConfig controls roster/report export generation.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	WorkerConcurrency int
	WorkerRetries     int
}

// RosterConfig tunes read-side caching for roster and risk aggregates.
type RosterConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Counselling = CounsellingConfig{
		CacheTTL:       parseMillis(v.GetInt64("COUNSELLING_CACHE_TTL"), 15*time.Minute),
		RequestTimeout: parseMillis(v.GetInt64("LLM_REQUEST_TIMEOUT"), 15*time.Second),
	}

	cfg.LLM = LLMConfig{
		Provider: strings.ToLower(v.GetString("LLM_PROVIDER")),
		OpenAI: ProviderConfig{
			BaseURL: v.GetString("OPENAI_BASE_URL"),
			Model:   v.GetString("OPENAI_MODEL"),
			APIKey:  v.GetString("OPENAI_API_KEY"),
		},
		Ollama: ProviderConfig{
			BaseURL: v.GetString("OLLAMA_BASE_URL"),
			Model:   v.GetString("OLLAMA_MODEL"),
		},
		LMStudio: ProviderConfig{
			BaseURL: v.GetString("LMSTUDIO_BASE_URL"),
			Model:   v.GetString("LMSTUDIO_MODEL"),
		},
		Groq: ProviderConfig{
			BaseURL: v.GetString("GROQ_BASE_URL"),
			Model:   v.GetString("GROQ_MODEL"),
			APIKey:  v.GetString("GROQ_API_KEY"),
		},
		XAI: ProviderConfig{
			BaseURL: v.GetString("XAI_BASE_URL"),
			Model:   v.GetString("XAI_MODEL"),
			APIKey:  v.GetString("XAI_API_KEY"),
		},
	}

	cfg.ML = MLConfig{
		BaseURL: v.GetString("ML_SERVICE_URL"),
		Timeout: parseDuration(v.GetString("ML_SERVICE_TIMEOUT"), 20*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Roster = RosterConfig{
		CacheTTL: parseDuration(v.GetString("ROSTER_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 4000)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dropout_copilot")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "dropout-copilot-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	// Cache TTL and provider timeout are expressed in milliseconds to
	// stay compatible with the existing deployment tooling.
	v.SetDefault("COUNSELLING_CACHE_TTL", 900000)
	v.SetDefault("LLM_REQUEST_TIMEOUT", 15000)

	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4.1")
	v.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3.1:8b")
	v.SetDefault("LMSTUDIO_BASE_URL", "http://localhost:1234/v1")
	v.SetDefault("LMSTUDIO_MODEL", "local-model")
	v.SetDefault("GROQ_BASE_URL", "")
	v.SetDefault("GROQ_MODEL", "")
	v.SetDefault("XAI_BASE_URL", "https://api.x.ai/v1")
	v.SetDefault("XAI_MODEL", "grok-2-latest")

	v.SetDefault("ML_SERVICE_URL", "http://127.0.0.1:8000")
	v.SetDefault("ML_SERVICE_TIMEOUT", "20s")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("ROSTER_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseMillis(raw int64, fallback time.Duration) time.Duration {
	if raw <= 0 {
		return fallback
	}
	return time.Duration(raw) * time.Millisecond
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
