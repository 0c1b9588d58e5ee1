package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/babetranslator-backend/internal/domain/user"
	"github.com/yungbote/babetranslator-backend/internal/services"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BT_CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.State.Backend != StateMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	p := cfg.QuotaPolicy()
	if p.DailyLimit != 3 || p.Window != services.WindowCalendar || p.Location != time.UTC {
		t.Fatalf("quota policy: %+v", p)
	}
	if cfg.FallbackPersonality() != user.INFP {
		t.Fatalf("fallback: %q", cfg.FallbackPersonality())
	}
	if cfg.Capabilities.Timeout.Duration != 20*time.Second {
		t.Fatalf("capability timeout: %v", cfg.Capabilities.Timeout.Duration)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
env: test
http:
  addr: ":9000"
  shutdown_timeout: 3s
quota:
  daily_limit: 5
  window: rolling
  timezone: Asia/Taipei
reply:
  fallback_personality: enfp
capabilities:
  timeout: 1500000000
  extractor: none
`)
	t.Setenv("BT_QUOTA_DAILY_LIMIT", "7")
	t.Setenv("BT_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.HTTP.ShutdownTimeout.Duration != 3*time.Second {
		t.Fatalf("http: %+v", cfg.HTTP)
	}
	if cfg.Capabilities.Timeout.Duration != 1500*time.Millisecond {
		t.Fatalf("int duration: %v", cfg.Capabilities.Timeout.Duration)
	}
	p := cfg.QuotaPolicy()
	if p.DailyLimit != 7 || p.Window != services.WindowRolling || p.Location.String() != "Asia/Taipei" {
		t.Fatalf("quota: %+v", p)
	}
	if cfg.FallbackPersonality() != user.ENFP {
		t.Fatalf("fallback: %q", cfg.FallbackPersonality())
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors: %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad window", "quota:\n  window: weekly\n", "quota.window"},
		{"bad timezone", "quota:\n  timezone: Mars/Olympus\n", "quota.timezone"},
		{"bad limit", "quota:\n  daily_limit: -1\n", "quota.daily_limit"},
		{"bad personality", "reply:\n  fallback_personality: XXXX\n", "reply.fallback_personality"},
		{"bad extractor", "capabilities:\n  extractor: tesseract\n", "capabilities.extractor"},
		{"openai without key", "capabilities:\n  analyzer: openai\n", "openai.api_key"},
		{"gemini without key", "capabilities:\n  replier: gemini\n", "gemini.api_key"},
		{"redis without addr", "state:\n  backend: redis\n", "state.redis_addr"},
		{"postgres without dsn", "state:\n  backend: postgres\n", "state.postgres_dsn"},
		{"unknown state", "state:\n  backend: etcd\n", "state.backend"},
		{"bad ratio", "otel:\n  sample_ratio: 2\n", "otel.sample_ratio"},
		{"bad duration", "capabilities:\n  timeout: soon\n", "duration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("REDIS_ADDR", "")
			t.Setenv("POSTGRES_DSN", "")
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := defaultConfig()
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.State.PostgresDSN = "postgres://u:p@h/db"
	r := cfg.Redacted()
	if r.OpenAI.APIKey == "sk-secret" || r.State.PostgresDSN == cfg.State.PostgresDSN {
		t.Fatalf("secrets not redacted: %+v", r)
	}
	if cfg.OpenAI.APIKey != "sk-secret" {
		t.Fatalf("Redacted mutated the original")
	}
}
