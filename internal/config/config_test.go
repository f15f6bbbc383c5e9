package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("IDENTITY_EXCHANGE_URL", "https://auth.example.com/session-data")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	durations := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"SessionTTL", cfg.Session.TTL, 7 * 24 * time.Hour},
		{"IdentityTimeout", cfg.Identity.Timeout, 10 * time.Second},
		{"TrialsTimeout", cfg.Trials.Timeout, 30 * time.Second},
		{"TrialsMinInterval", cfg.Trials.MinInterval, 1500 * time.Millisecond},
		{"SummaryTTL", cfg.Summary.TTL, time.Hour},
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"AdvisorTimeout", cfg.LLM.AdvisorTimeout, 45 * time.Second},
	}

	for _, tt := range durations {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if !cfg.Session.CookieSecure {
		t.Error("CookieSecure should default to true")
	}
	if cfg.LLM.AdvisorMaxTokens != 600 {
		t.Errorf("AdvisorMaxTokens: got %d, want 600", cfg.LLM.AdvisorMaxTokens)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis should be disabled by default, got addr %q", cfg.Redis.Addr)
	}
	if cfg.Email.EmailEnabled() {
		t.Error("email should be disabled without SES settings")
	}
}

func TestLoad_RequiredVariables(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing DB_PASSWORD",
			env:  map[string]string{"IDENTITY_EXCHANGE_URL": "https://auth.example.com"},
		},
		{
			name: "missing IDENTITY_EXCHANGE_URL",
			env:  map[string]string{"DB_PASSWORD": "test"},
		},
		{
			name: "non-positive SESSION_TTL",
			env: map[string]string{
				"DB_PASSWORD":           "test",
				"IDENTITY_EXCHANGE_URL": "https://auth.example.com",
				"SESSION_TTL":           "-1h",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PASSWORD", "")
			t.Setenv("IDENTITY_EXCHANGE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Error("Load() = nil, want error")
			}
		})
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("SES_REGION", "us-east-1")
	t.Setenv("SES_FROM_ADDRESS", "noreply@example.com")
	t.Setenv("SUMMARY_CACHE_MAX_ENTRIES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("SessionTTL: got %v, want 24h", cfg.Session.TTL)
	}
	if cfg.Session.CookieSecure {
		t.Error("CookieSecure: got true, want false")
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins: got %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Email.EmailEnabled() {
		t.Error("email should be enabled with region and from address")
	}
	if cfg.Summary.MaxEntries != 10000 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.Summary.MaxEntries)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "curalink", SSLMode: "require"}

	want := "host=db port=5433 user=u password=p dbname=curalink sslmode=require"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
