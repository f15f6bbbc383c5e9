package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Session   SessionConfig
	Identity  IdentityConfig
	Trials    TrialsConfig
	PubMed    PubMedConfig
	LLM       LLMConfig
	Summary   SummaryConfig
	Redis     RedisConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	CookieDomain    string
	CookieSecure    bool
}

type IdentityConfig struct {
	ExchangeURL string
	Timeout     time.Duration
}

type TrialsConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MinInterval time.Duration
}

type PubMedConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// LLMConfig configures the summarizer and the treatment advisor. An empty
// APIURL disables both.
type LLMConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration

	AdvisorTimeout   time.Duration
	AdvisorMaxTokens int
}

type SummaryConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// RedisConfig switches the summary cache to Redis when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EmailConfig enables notification email when both Region and FromAddress are set.
type EmailConfig struct {
	Region      string
	FromAddress string
	BaseURL     string
}

type RateLimitConfig struct {
	LoginPerMinute  int
	SearchPerMinute int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "curalink"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
			TrustedProxies: parseAllowedOrigins(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 1*time.Hour),
			CookieDomain:    getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:    getEnvAsBool("COOKIE_SECURE", true),
		},
		Identity: IdentityConfig{
			ExchangeURL: getEnv("IDENTITY_EXCHANGE_URL", ""),
			Timeout:     getEnvAsDuration("IDENTITY_EXCHANGE_TIMEOUT", 10*time.Second),
		},
		Trials: TrialsConfig{
			BaseURL:     getEnv("TRIALS_BASE_URL", "https://clinicaltrials.gov/api/v2/studies"),
			Timeout:     getEnvAsDuration("TRIALS_TIMEOUT", 30*time.Second),
			MinInterval: getEnvAsDuration("TRIALS_MIN_INTERVAL", 1500*time.Millisecond),
		},
		PubMed: PubMedConfig{
			BaseURL: getEnv("PUBMED_BASE_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"),
			APIKey:  getEnv("PUBMED_API_KEY", ""),
			Timeout: getEnvAsDuration("PUBMED_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			APIURL:  getEnv("LLM_API_URL", ""),
			APIKey:  getEnv("LLM_API_KEY", ""),
			Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsDuration("LLM_TIMEOUT", 15*time.Second),

			AdvisorTimeout:   getEnvAsDuration("LLM_ADVISOR_TIMEOUT", 45*time.Second),
			AdvisorMaxTokens: getEnvAsInt("LLM_ADVISOR_MAX_TOKENS", 600),
		},
		Summary: SummaryConfig{
			TTL:        getEnvAsDuration("SUMMARY_CACHE_TTL", 1*time.Hour),
			MaxEntries: getEnvAsInt("SUMMARY_CACHE_MAX_ENTRIES", 10000),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			Region:      getEnv("SES_REGION", ""),
			FromAddress: getEnv("SES_FROM_ADDRESS", ""),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute:  getEnvAsInt("RATE_LIMIT_LOGIN", 10),
			SearchPerMinute: getEnvAsInt("RATE_LIMIT_SEARCH", 30),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Identity.ExchangeURL == "" {
		return nil, fmt.Errorf("IDENTITY_EXCHANGE_URL is required")
	}

	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// EmailEnabled reports whether notification email can be sent
func (c *EmailConfig) EmailEnabled() bool {
	return c.Region != "" && c.FromAddress != ""
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(originsStr string) []string {
	if originsStr == "" {
		return []string{}
	}
	origins := strings.Split(originsStr, ",")
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
